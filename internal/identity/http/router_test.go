package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/service"
	"github.com/arcwell/identity/internal/identity/store/drivers/sqlite"
	"github.com/arcwell/identity/pkg/cryptox"
	"github.com/arcwell/identity/pkg/jwtx"
)

var pepperOnce sync.Once

type testEnv struct {
	router *Router
	codes  []string // OTP codes "sent" by the fake mailer
	ipSeq  int      // distinct client IPs so per-IP limits never interfere
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	pepperOnce.Do(func() {
		cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
	})

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	env := &testEnv{}

	mailer := service.MailerFuncs{
		OTPFunc: func(_ context.Context, _ string, _ domain.OTPPurpose, code string, _ time.Duration) error {
			env.codes = append(env.codes, code)
			return nil
		},
	}

	secret := []byte("0123456789abcdef0123456789abcdef")
	signer, err := jwtx.NewHMACSigner("HS256", secret)
	require.NoError(t, err)
	verifier, err := jwtx.NewHMACVerifier("HS256", secret, "identity-test")
	require.NoError(t, err)

	blacklist := &service.BlacklistService{Store: st, Verifier: verifier}
	tokens := &service.TokenService{
		Signer: signer, Verifier: verifier, Store: st, Blacklist: blacklist,
		Issuer: "identity-test", AccessTTL: 15 * time.Minute,
	}
	otps := &service.OTPService{Store: st, Mailer: mailer}
	auth := &service.AuthService{
		Store: st, Tokens: tokens, OTPs: otps, Blacklist: blacklist, Mailer: mailer,
	}

	logger := slog.New(slog.DiscardHandler)
	boot := &service.BootstrapService{Store: st, Logger: logger}
	require.NoError(t, boot.Seed(context.Background()))

	router := NewRouter("test", st, logger)
	router.AuthService = auth
	router.TokenService = tokens
	router.OTPService = otps
	router.UserService = &service.UserService{Store: st, Mailer: mailer}
	router.RoleService = &service.RoleService{Store: st}
	router.PermissionService = &service.PermissionService{Store: st}
	router.ApplyRoutes()

	env.router = router
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	e.ipSeq++
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", e.ipSeq%250+1))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, e.codes)
	return e.codes[len(e.codes)-1]
}

// registerAndLogin walks the full onboarding flow and returns the token.
func (e *testEnv) registerAndLogin(t *testing.T, email string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace",
		"email": email, "password": "Sup3rSecret", "password_confirm": "Sup3rSecret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": email, "password": "Sup3rSecret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

// promote assigns the seeded admin role to the user behind the token.
func (e *testEnv) promote(t *testing.T, email string) {
	t.Helper()
	ctx := context.Background()
	st := e.router.store

	admin, err := st.Roles().GetRoleByName(ctx, "admin")
	require.NoError(t, err)
	user, err := st.Users().GetUserByEmail(ctx, email)
	require.NoError(t, err)
	user.RoleID = &admin.ID
	require.NoError(t, st.Users().UpdateProfile(ctx, user))
}

func TestOnboardingFlow(t *testing.T) {
	env := newTestEnv(t)

	token := env.registerAndLogin(t, "ada@example.com")

	// Freshly registered accounts are unverified.
	rec := env.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Email      string `json:"email"`
		IsVerified bool   `json:"is_verified"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, "ada@example.com", me.Email)
	require.False(t, me.IsVerified)

	// Request and verify the registration OTP.
	rec = env.do(t, http.MethodPost, "/v1/otp/request", "", map[string]string{
		"email": "ada@example.com", "purpose": "register",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/v1/otp/verify", "", map[string]string{
		"email": "ada@example.com", "code": env.lastCode(t), "purpose": "register",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.True(t, me.IsVerified)
}

func TestLoginFailure(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "ada@example.com")

	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "WrongPass1",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var errResp struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	require.Equal(t, "unauthorized", errResp.Error)
	require.Equal(t, "incorrect email or password", errResp.ErrorDescription)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "ada@example.com")

	rec := env.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteOwnAccount(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "ada@example.com")

	rec := env.do(t, http.MethodDelete, "/v1/me", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Deactivated callers can no longer authenticate.
	rec = env.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "Sup3rSecret",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "ada@example.com")

	rec := env.do(t, http.MethodPost, "/v1/auth/forgot-password", "", map[string]string{
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/v1/auth/reset-password", "", map[string]string{
		"email": "ada@example.com", "code": env.lastCode(t),
		"password": "N3wSecret!", "password_confirm": "N3wSecret!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "N3wSecret!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestScopeGates(t *testing.T) {
	env := newTestEnv(t)

	memberToken := env.registerAndLogin(t, "member@example.com")
	adminToken := env.registerAndLogin(t, "admin@example.com")
	env.promote(t, "admin@example.com")

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users", memberToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin can list users", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var users []userResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
		require.Len(t, users, 2)
	})

	t.Run("admin manages roles", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/roles", adminToken, map[string]string{
			"name": "auditor", "description": "read-only",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var role roleResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &role))

		rec = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/roles/%d", role.ID), adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("duplicate role conflicts", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/roles", adminToken, map[string]string{"name": "admin"})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("seeded role cannot be deleted while assigned", func(t *testing.T) {
		admin, err := env.router.store.Roles().GetRoleByName(context.Background(), "admin")
		require.NoError(t, err)

		rec := env.do(t, http.MethodDelete, fmt.Sprintf("/v1/roles/%d", admin.ID), adminToken, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAdminCreatesUser(t *testing.T) {
	env := newTestEnv(t)

	adminToken := env.registerAndLogin(t, "admin@example.com")
	env.promote(t, "admin@example.com")

	rec := env.do(t, http.MethodPost, "/v1/users", adminToken, map[string]any{
		"first_name": "Grace", "last_name": "Hopper", "email": "grace@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.IsVerified)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/v1/users/%d/deactivate", created.ID), adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/users/%d", created.ID), adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/v1/users/%d", created.ID), adminToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateOwnPassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "ada@example.com")

	rec := env.do(t, http.MethodPut, "/v1/me/password", token, map[string]string{
		"current_password": "WrongPass1", "password": "N3wSecret!", "password_confirm": "N3wSecret!",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/me/password", token, map[string]string{
		"current_password": "Sup3rSecret", "password": "N3wSecret!", "password_confirm": "N3wSecret!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
