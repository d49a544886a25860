package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, role_id, first_name, last_name, email, password_hash,
	is_verified, is_active, last_active, created_at, updated_at`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (role_id, first_name, last_name, email, password_hash,
			is_verified, is_active, last_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mapOptionalInt64(u.RoleID),
		u.FirstName,
		u.LastName,
		u.Email,
		u.PasswordHash,
		u.IsVerified,
		u.IsActive,
		mapOptionalTime(u.LastActive),
		now,
		now,
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdateProfile(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET role_id = ?, first_name = ?, last_name = ?, email = ?, updated_at = ?
		WHERE id = ?`,
		mapOptionalInt64(u.RoleID),
		u.FirstName,
		u.LastName,
		u.Email,
		time.Now().UTC(),
		u.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return requireRow(res)
}

func (r *usersRepo) SetVerified(ctx context.Context, userID int64, verified bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_verified = ?, updated_at = ? WHERE id = ?`,
		verified, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("set verified: %w", err)
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateLastActive(ctx context.Context, userID int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_active = ? WHERE id = ?`, at.UTC(), userID)
	if err != nil {
		return fmt.Errorf("update last active: %w", err)
	}
	return requireRow(res)
}

func (r *usersRepo) DeactivateUser(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return requireRow(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

func (r *usersRepo) CountByRole(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role_id = ?`, roleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

// requireRow turns a zero-row UPDATE/DELETE into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u          domain.User
		roleID     sql.NullInt64
		lastActive sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&roleID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&u.IsVerified,
		&u.IsActive,
		&lastActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.RoleID = mapNullInt64Ptr(roleID)
	u.LastActive = mapNullTimePtr(lastActive)
	return u, nil
}
