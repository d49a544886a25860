package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arcwell/identity/internal/identity/domain"
)

func grantRole(t *testing.T, f *fixture, userID int64, roleName string, perms ...string) {
	t.Helper()
	ctx := context.Background()

	role, err := f.roles.Create(ctx, roleName, "")
	require.NoError(t, err)

	for _, name := range perms {
		perm, err := f.perms.Create(ctx, name, "")
		require.NoError(t, err)
		require.NoError(t, f.roles.AddPermission(ctx, role.ID, perm.ID))
	}

	user, err := f.users.Get(ctx, userID)
	require.NoError(t, err)
	_, err = f.users.UpdateProfile(ctx, userID, UpdateProfileParams{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		RoleID:    &role.ID,
	})
	require.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "ada@example.com", "Sup3rSecret")
	token, _, err := f.tokens.Issue(user)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		got, err := f.tokens.Authenticate(ctx, token)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.tokens.Authenticate(ctx, "not.a.jwt")
		requireKind(t, err, KindUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		// Expiry is enforced by the verifier against real time, so issue a
		// token that is already stale.
		stale, _, err := (&TokenService{
			Signer: f.tokens.Signer, Verifier: f.tokens.Verifier,
			Store: f.store, Blacklist: f.blacklist,
			Issuer: "identity-test", AccessTTL: time.Minute,
			Now: func() time.Time { return time.Now().UTC().Add(-2 * time.Minute) },
		}).Issue(user)
		require.NoError(t, err)

		_, err = f.tokens.Authenticate(ctx, stale)
		requireKind(t, err, KindUnauthorized)
	})

	t.Run("revoked token", func(t *testing.T) {
		require.NoError(t, f.blacklist.Revoke(ctx, token))
		_, err := f.tokens.Authenticate(ctx, token)
		requireKind(t, err, KindUnauthorized)
	})
}

func TestAuthenticate_UserState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "ada@example.com", "Sup3rSecret")
	token, _, err := f.tokens.Issue(user)
	require.NoError(t, err)

	require.NoError(t, f.users.Deactivate(ctx, user.ID))
	_, err = f.tokens.Authenticate(ctx, token)
	requireKind(t, err, KindUnauthorized)

	require.NoError(t, f.users.Delete(ctx, user.ID))
	_, err = f.tokens.Authenticate(ctx, token)
	requireKind(t, err, KindUnauthorized)
}

func TestAuthenticate_Scopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "ada@example.com", "Sup3rSecret")
	grantRole(t, f, user.ID, "viewer", "view_users")

	token, _, err := f.tokens.Issue(user)
	require.NoError(t, err)

	t.Run("granted scope", func(t *testing.T) {
		_, err := f.tokens.Authenticate(ctx, token, "view_users")
		require.NoError(t, err)
	})

	t.Run("any one scope suffices", func(t *testing.T) {
		_, err := f.tokens.Authenticate(ctx, token, "manage_users", "view_users")
		require.NoError(t, err)
	})

	t.Run("missing scope", func(t *testing.T) {
		_, err := f.tokens.Authenticate(ctx, token, "manage_users")
		requireKind(t, err, KindForbidden)
	})

	t.Run("role edits apply to live tokens", func(t *testing.T) {
		role, err := f.roles.Create(ctx, "auditor", "")
		require.NoError(t, err)
		perm, err := f.perms.Create(ctx, "manage_users", "")
		require.NoError(t, err)
		require.NoError(t, f.roles.AddPermission(ctx, role.ID, perm.ID))

		_, err = f.users.UpdateProfile(ctx, user.ID, UpdateProfileParams{
			FirstName: "Ada", LastName: "Lovelace",
			Email: "ada@example.com", RoleID: &role.ID,
		})
		require.NoError(t, err)

		_, err = f.tokens.Authenticate(ctx, token, "manage_users")
		require.NoError(t, err)
		_, err = f.tokens.Authenticate(ctx, token, "view_users")
		requireKind(t, err, KindForbidden)
	})
}

func TestAuthenticate_RolelessUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "ada@example.com", "Sup3rSecret")
	token, _, err := f.tokens.Issue(user)
	require.NoError(t, err)

	_, err = f.tokens.Authenticate(ctx, token, "view_users")
	requireKind(t, err, KindForbidden)
}

func TestBlacklistRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("undecodable token", func(t *testing.T) {
		err := f.blacklist.Revoke(ctx, "garbage")
		requireKind(t, err, KindValidation)
	})

	t.Run("expired tokens still revoke", func(t *testing.T) {
		stale, _, err := (&TokenService{
			Signer: f.tokens.Signer, Verifier: f.tokens.Verifier,
			Issuer: "identity-test", AccessTTL: time.Minute,
			Now: func() time.Time { return time.Now().UTC().Add(-2 * time.Minute) },
		}).Issue(domain.User{ID: 7})
		require.NoError(t, err)

		require.NoError(t, f.blacklist.Revoke(ctx, stale))
		revoked, err := f.blacklist.IsRevoked(ctx, stale)
		require.NoError(t, err)
		require.True(t, revoked)
	})
}

func TestBlacklistCleanup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "ada@example.com", "Sup3rSecret")
	token, expiresAt, err := f.tokens.Issue(user)
	require.NoError(t, err)
	require.NoError(t, f.blacklist.Revoke(ctx, token))

	removed, err := f.blacklist.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)

	f.now = expiresAt.Add(time.Minute)
	removed, err = f.blacklist.CleanupExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}
