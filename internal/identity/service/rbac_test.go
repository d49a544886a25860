package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	role, err := f.roles.Create(ctx, "admin", "full access")
	require.NoError(t, err)
	require.Equal(t, "admin", role.Name)

	_, err = f.roles.Create(ctx, "admin", "")
	requireKind(t, err, KindConflict)

	_, err = f.roles.Create(ctx, "  ", "")
	requireKind(t, err, KindValidation)

	_, err = f.roles.Get(ctx, role.ID+100)
	requireKind(t, err, KindNotFound)

	perm, err := f.perms.Create(ctx, "manage_users", "")
	require.NoError(t, err)

	require.NoError(t, f.roles.AddPermission(ctx, role.ID, perm.ID))
	require.NoError(t, f.roles.AddPermission(ctx, role.ID, perm.ID))

	requireKind(t, f.roles.AddPermission(ctx, role.ID+100, perm.ID), KindNotFound)
	requireKind(t, f.roles.AddPermission(ctx, role.ID, perm.ID+100), KindNotFound)

	perms, err := f.roles.ListPermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)

	require.NoError(t, f.roles.RemovePermission(ctx, role.ID, perm.ID))
	require.NoError(t, f.roles.RemovePermission(ctx, role.ID, perm.ID))

	require.NoError(t, f.roles.Delete(ctx, role.ID))
	requireKind(t, f.roles.Delete(ctx, role.ID), KindNotFound)
}

func TestRoleDelete_Referenced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "ada@example.com", "Sup3rSecret")
	grantRole(t, f, user.ID, "member")

	got, err := f.users.Get(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RoleID)

	requireKind(t, f.roles.Delete(ctx, *got.RoleID), KindConflict)

	// Detach the user; the role can then go.
	_, err = f.users.UpdateProfile(ctx, user.ID, UpdateProfileParams{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
	})
	require.NoError(t, err)
	require.NoError(t, f.roles.Delete(ctx, *got.RoleID))
}

func TestPermissionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	perm, err := f.perms.Create(ctx, "view_users", "read accounts")
	require.NoError(t, err)

	_, err = f.perms.Create(ctx, "view_users", "")
	requireKind(t, err, KindConflict)

	got, err := f.perms.Get(ctx, perm.ID)
	require.NoError(t, err)
	require.Equal(t, "read accounts", got.Description)

	require.NoError(t, f.perms.Delete(ctx, perm.ID))
	requireKind(t, f.perms.Delete(ctx, perm.ID), KindNotFound)
}

func TestHasPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "ada@example.com", "Sup3rSecret")

	ok, err := f.perms.HasPermission(ctx, user.ID, "view_users")
	require.NoError(t, err)
	require.False(t, ok)

	grantRole(t, f, user.ID, "viewer", "view_users")

	ok, err = f.perms.HasPermission(ctx, user.ID, "view_users")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.perms.HasPermission(ctx, user.ID, "manage_users")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUserProfileUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "ada@example.com", "Sup3rSecret")
	f.register(t, "taken@example.com", "Sup3rSecret")

	t.Run("email collision", func(t *testing.T) {
		_, err := f.users.UpdateProfile(ctx, user.ID, UpdateProfileParams{
			FirstName: "Ada", LastName: "Lovelace", Email: "taken@example.com",
		})
		requireKind(t, err, KindConflict)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := f.users.UpdateProfile(ctx, user.ID, UpdateProfileParams{
			FirstName: " ", LastName: "Lovelace", Email: "ada@example.com",
		})
		requireKind(t, err, KindValidation)
	})

	t.Run("email change notifies new address", func(t *testing.T) {
		got, err := f.users.UpdateProfile(ctx, user.ID, UpdateProfileParams{
			FirstName: "Ada", LastName: "King", Email: "countess@example.com",
		})
		require.NoError(t, err)
		require.Equal(t, "countess@example.com", got.Email)
		require.Equal(t, []string{"countess@example.com"}, f.mailer.changed)
	})

	t.Run("same email does not notify", func(t *testing.T) {
		_, err := f.users.UpdateProfile(ctx, user.ID, UpdateProfileParams{
			FirstName: "Ada", LastName: "King", Email: "countess@example.com",
		})
		require.NoError(t, err)
		require.Len(t, f.mailer.changed, 1)
	})
}

func TestBootstrapSeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	boot := &BootstrapService{Store: f.store, Logger: slog.New(slog.DiscardHandler)}
	require.NoError(t, boot.Seed(ctx))

	admin, err := f.store.Roles().GetRoleByName(ctx, "admin")
	require.NoError(t, err)
	perms, err := f.store.Roles().ListRolePermissions(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, perms, 6)

	_, err = f.store.Roles().GetRoleByName(ctx, "member")
	require.NoError(t, err)

	// Running again leaves the catalog unchanged.
	require.NoError(t, boot.Seed(ctx))
	perms, err = f.store.Roles().ListRolePermissions(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, perms, 6)
}
