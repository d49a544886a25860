package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/arcwell/identity/internal/identity/domain"
)

type permissionsRepo struct {
	db dbtx
}

func (r *permissionsRepo) CreatePermission(ctx context.Context, p domain.Permission) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO permissions (name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		p.Name, p.Description, now, now)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *permissionsRepo) GetPermissionByID(ctx context.Context, id int64) (domain.Permission, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM permissions WHERE id = ?`, id)
	return scanPermission(row)
}

func (r *permissionsRepo) GetPermissionByName(ctx context.Context, name string) (domain.Permission, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM permissions WHERE name = ?`, name)
	return scanPermission(row)
}

func (r *permissionsRepo) ListPermissions(ctx context.Context, offset, limit int) ([]domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM permissions ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *permissionsRepo) DeletePermission(ctx context.Context, permissionID int64) error {
	// role_permissions rows cascade, so deletion never trips a FK here.
	res, err := r.db.ExecContext(ctx, `DELETE FROM permissions WHERE id = ?`, permissionID)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	return requireRow(res)
}

func (r *permissionsRepo) ListUserPermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN users u ON u.role_id = rp.role_id
		WHERE u.id = ?
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user permissions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanPermission(row rowScanner) (domain.Permission, error) {
	var p domain.Permission
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Permission{}, mapNotFound(err)
	}
	return p, nil
}
