package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/store"
)

type RoleService struct {
	Store store.Store
}

func (s *RoleService) Create(ctx context.Context, name, description string) (domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Role{}, ValidationError("role name is required")
	}

	id, err := s.Store.Roles().CreateRole(ctx, domain.Role{Name: name, Description: description})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Role{}, ConflictError("role name already exists")
		}
		return domain.Role{}, fmt.Errorf("create role: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *RoleService) Get(ctx context.Context, id int64) (domain.Role, error) {
	role, err := s.Store.Roles().GetRoleByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Role{}, NotFoundError("role not found")
		}
		return domain.Role{}, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

func (s *RoleService) List(ctx context.Context, offset, limit int) ([]domain.Role, error) {
	return s.Store.Roles().ListRoles(ctx, offset, normalizeLimit(limit))
}

// Delete removes a role. Roles still assigned to users are protected: the
// delete is rejected rather than detaching or cascading.
func (s *RoleService) Delete(ctx context.Context, id int64) error {
	err := s.Store.Roles().DeleteRole(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return NotFoundError("role not found")
	case errors.Is(err, store.ErrReferenced):
		return ConflictError("role is assigned to users")
	default:
		return fmt.Errorf("delete role: %w", err)
	}
}

func (s *RoleService) ListPermissions(ctx context.Context, roleID int64) ([]domain.Permission, error) {
	if _, err := s.Get(ctx, roleID); err != nil {
		return nil, err
	}
	return s.Store.Roles().ListRolePermissions(ctx, roleID)
}

// AddPermission grants a permission to a role. Granting an already-granted
// permission succeeds without effect.
func (s *RoleService) AddPermission(ctx context.Context, roleID, permissionID int64) error {
	if err := s.requirePair(ctx, roleID, permissionID); err != nil {
		return err
	}
	if err := s.Store.Roles().AddPermissionToRole(ctx, roleID, permissionID); err != nil {
		return fmt.Errorf("add permission to role: %w", err)
	}
	return nil
}

// RemovePermission revokes a permission from a role. Revoking an absent
// grant succeeds without effect.
func (s *RoleService) RemovePermission(ctx context.Context, roleID, permissionID int64) error {
	if err := s.requirePair(ctx, roleID, permissionID); err != nil {
		return err
	}
	if err := s.Store.Roles().RemovePermissionFromRole(ctx, roleID, permissionID); err != nil {
		return fmt.Errorf("remove permission from role: %w", err)
	}
	return nil
}

func (s *RoleService) requirePair(ctx context.Context, roleID, permissionID int64) error {
	if _, err := s.Get(ctx, roleID); err != nil {
		return err
	}
	_, err := s.Store.Permissions().GetPermissionByID(ctx, permissionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("permission not found")
		}
		return fmt.Errorf("get permission: %w", err)
	}
	return nil
}

const defaultListLimit = 50

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
