package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/store"
	"github.com/arcwell/identity/internal/identity/store/drivers/sqlite"
	"github.com/arcwell/identity/pkg/cryptox"
	"github.com/arcwell/identity/pkg/jwtx"
)

var pepperOnce sync.Once

// capturingMailer records every send and can be told to fail.
type capturingMailer struct {
	mu       sync.Mutex
	otpCodes []string
	welcomes []string // generated passwords
	changed  []string // notified addresses
	fail     bool
}

func (m *capturingMailer) SendOTP(_ context.Context, _ string, _ domain.OTPPurpose, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.otpCodes = append(m.otpCodes, code)
	return nil
}

func (m *capturingMailer) SendWelcome(_ context.Context, _, _, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.welcomes = append(m.welcomes, password)
	return nil
}

func (m *capturingMailer) SendEmailChanged(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.changed = append(m.changed, to)
	return nil
}

func (m *capturingMailer) lastOTP(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.otpCodes)
	return m.otpCodes[len(m.otpCodes)-1]
}

type fixture struct {
	store  store.Store
	mailer *capturingMailer

	auth      *AuthService
	users     *UserService
	otps      *OTPService
	tokens    *TokenService
	blacklist *BlacklistService
	roles     *RoleService
	perms     *PermissionService

	// now is mutable so tests can advance the clock.
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pepperOnce.Do(func() {
		cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
	})

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	f := &fixture{
		store:  st,
		mailer: &capturingMailer{},
		// Start at real time: the jwtx verifier checks exp/nbf against the
		// wall clock, so a fixed date makes freshly issued tokens expired.
		now: time.Now().UTC(),
	}
	clock := func() time.Time { return f.now }

	secret := []byte("0123456789abcdef0123456789abcdef")
	signer, err := jwtx.NewHMACSigner("HS256", secret)
	require.NoError(t, err)
	verifier, err := jwtx.NewHMACVerifier("HS256", secret, "identity-test")
	require.NoError(t, err)

	f.blacklist = &BlacklistService{Store: st, Verifier: verifier, Now: clock}
	f.tokens = &TokenService{
		Signer:    signer,
		Verifier:  verifier,
		Store:     st,
		Blacklist: f.blacklist,
		Issuer:    "identity-test",
		AccessTTL: 15 * time.Minute,
		Now:       clock,
	}
	f.otps = &OTPService{Store: st, Mailer: f.mailer, TTL: 10 * time.Minute, CodeLength: 6, Now: clock}
	f.auth = &AuthService{
		Store:     st,
		Tokens:    f.tokens,
		OTPs:      f.otps,
		Blacklist: f.blacklist,
		Mailer:    f.mailer,
		Now:       clock,
	}
	f.users = &UserService{Store: st, Mailer: f.mailer}
	f.roles = &RoleService{Store: st}
	f.perms = &PermissionService{Store: st}

	return f
}

// register creates a verified, active account and returns it.
func (f *fixture) register(t *testing.T, email, password string) domain.User {
	t.Helper()

	user, err := f.auth.SelfRegister(context.Background(), SelfRegisterParams{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	})
	require.NoError(t, err)
	return user
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error was: %v", err)
}
