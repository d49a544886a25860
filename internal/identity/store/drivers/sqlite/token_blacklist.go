package sqlite

import (
	"context"
	"fmt"
	"time"
)

type tokenBlacklistRepo struct {
	db dbtx
}

func (r *tokenBlacklistRepo) AddToken(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO token_blacklist (token, expires_at, created_at)
		VALUES (?, ?, ?)`,
		token, expiresAt.UTC(), time.Now().UTC())
	return mapConstraint(err)
}

func (r *tokenBlacklistRepo) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM token_blacklist WHERE token = ?)`, token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return exists, nil
}

func (r *tokenBlacklistRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM token_blacklist WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}
