package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/store"
)

type PermissionService struct {
	Store store.Store
}

func (s *PermissionService) Create(ctx context.Context, name, description string) (domain.Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Permission{}, ValidationError("permission name is required")
	}

	id, err := s.Store.Permissions().CreatePermission(ctx, domain.Permission{Name: name, Description: description})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Permission{}, ConflictError("permission name already exists")
		}
		return domain.Permission{}, fmt.Errorf("create permission: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *PermissionService) Get(ctx context.Context, id int64) (domain.Permission, error) {
	perm, err := s.Store.Permissions().GetPermissionByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Permission{}, NotFoundError("permission not found")
		}
		return domain.Permission{}, fmt.Errorf("get permission: %w", err)
	}
	return perm, nil
}

func (s *PermissionService) List(ctx context.Context, offset, limit int) ([]domain.Permission, error) {
	return s.Store.Permissions().ListPermissions(ctx, offset, normalizeLimit(limit))
}

func (s *PermissionService) Delete(ctx context.Context, id int64) error {
	err := s.Store.Permissions().DeletePermission(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("permission not found")
		}
		return fmt.Errorf("delete permission: %w", err)
	}
	return nil
}

// HasPermission reports whether the user's role grants the named
// permission. Users without a role hold no permissions.
func (s *PermissionService) HasPermission(ctx context.Context, userID int64, name string) (bool, error) {
	granted, err := s.Store.Permissions().ListUserPermissions(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list user permissions: %w", err)
	}
	return slices.Contains(granted, name), nil
}
