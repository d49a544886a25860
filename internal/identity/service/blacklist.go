package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arcwell/identity/internal/identity/store"
	"github.com/arcwell/identity/pkg/jwtx"
)

// BlacklistService records revoked tokens until their natural expiry, after
// which housekeeping drops them. Revocation reads the token's own exp claim
// so an entry never outlives the token it blocks.
type BlacklistService struct {
	Store    store.Store
	Verifier jwtx.Verifier

	Now func() time.Time
}

func (s *BlacklistService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Revoke blocks a token. Already-revoked tokens are a no-op so logout stays
// idempotent. The signature must check out, but an expired token is still
// accepted: blacklisting it is harmless and simpler than distinguishing.
func (s *BlacklistService) Revoke(ctx context.Context, token string) error {
	claims, err := s.Verifier.Decode(token)
	if err != nil {
		return ValidationError("token could not be decoded")
	}
	if claims.ExpiresAt == nil {
		return ValidationError("token has no expiry")
	}

	err = s.Store.TokenBlacklist().AddToken(ctx, token, claims.ExpiresAt.Time)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token has been blacklisted.
func (s *BlacklistService) IsRevoked(ctx context.Context, token string) (bool, error) {
	return s.Store.TokenBlacklist().IsBlacklisted(ctx, token)
}

// CleanupExpired removes entries whose tokens have expired on their own.
func (s *BlacklistService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.Store.TokenBlacklist().DeleteExpiredTokens(ctx, s.now())
}
