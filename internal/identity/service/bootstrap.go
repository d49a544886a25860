package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/store"
)

// defaultCatalog is the role/permission set seeded into an empty store.
// Seeding is idempotent: existing names are left untouched.
var defaultCatalog = []struct {
	role        string
	description string
	permissions []string
}{
	{
		role:        "admin",
		description: "Full administrative access",
		permissions: []string{
			"manage_users", "view_users",
			"manage_roles", "view_roles",
			"manage_permissions", "view_permissions",
		},
	},
	{
		role:        "member",
		description: "Standard account",
		permissions: nil,
	},
}

var permissionDescriptions = map[string]string{
	"manage_users":       "Create, update, deactivate and delete users",
	"view_users":         "Read user accounts",
	"manage_roles":       "Create and delete roles, edit their permissions",
	"view_roles":         "Read roles and their permissions",
	"manage_permissions": "Create and delete permissions",
	"view_permissions":   "Read permissions",
}

// BootstrapService seeds the default role and permission catalog on
// startup so a fresh database is usable without manual setup.
type BootstrapService struct {
	Store  store.Store
	Logger *slog.Logger
}

// Seed creates any missing default roles and permissions and wires their
// grants. Safe to run on every startup.
func (s *BootstrapService) Seed(ctx context.Context) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		permIDs := make(map[string]int64)
		for name, description := range permissionDescriptions {
			id, err := s.ensurePermission(ctx, tx, name, description)
			if err != nil {
				return err
			}
			permIDs[name] = id
		}

		for _, entry := range defaultCatalog {
			roleID, err := s.ensureRole(ctx, tx, entry.role, entry.description)
			if err != nil {
				return err
			}
			for _, perm := range entry.permissions {
				if err := tx.Roles().AddPermissionToRole(ctx, roleID, permIDs[perm]); err != nil {
					return fmt.Errorf("grant %s to %s: %w", perm, entry.role, err)
				}
			}
		}
		return nil
	})
}

func (s *BootstrapService) ensureRole(ctx context.Context, tx store.Tx, name, description string) (int64, error) {
	existing, err := tx.Roles().GetRoleByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("lookup role %s: %w", name, err)
	}

	id, err := tx.Roles().CreateRole(ctx, domain.Role{Name: name, Description: description})
	if err != nil {
		return 0, fmt.Errorf("seed role %s: %w", name, err)
	}
	s.Logger.Info("seeded default role", "role", name)
	return id, nil
}

func (s *BootstrapService) ensurePermission(ctx context.Context, tx store.Tx, name, description string) (int64, error) {
	existing, err := tx.Permissions().GetPermissionByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("lookup permission %s: %w", name, err)
	}

	id, err := tx.Permissions().CreatePermission(ctx, domain.Permission{Name: name, Description: description})
	if err != nil {
		return 0, fmt.Errorf("seed permission %s: %w", name, err)
	}
	return id, nil
}
