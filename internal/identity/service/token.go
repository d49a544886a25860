package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/store"
	"github.com/arcwell/identity/pkg/jwtx"
)

// TokenService issues access tokens and authenticates bearers. The token
// payload carries only identity and lifetime; permissions are resolved live
// against the store on every check, so role edits apply immediately.
type TokenService struct {
	Signer    jwtx.Signer
	Verifier  jwtx.Verifier
	Store     store.Store
	Blacklist *BlacklistService

	Issuer    string
	AccessTTL time.Duration

	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *TokenService) ttl() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

// Issue signs an access token for the user. Returns the compact token and
// its expiry.
func (s *TokenService) Issue(user domain.User) (string, time.Time, error) {
	now := s.now()
	claims := jwtx.NewAccessClaims(strconv.FormatInt(user.ID, 10), s.Issuer, s.ttl(), now)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Authenticate resolves a bearer token to its user and enforces scopes.
// Every failure before the scope check is Unauthorized with the same
// message; a caller can never tell a forged token from a deleted or
// deactivated account. When requiredScopes is non-empty the user needs at
// least one of them, otherwise Forbidden.
func (s *TokenService) Authenticate(ctx context.Context, token string, requiredScopes ...string) (domain.User, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return domain.User{}, UnauthorizedError("invalid or expired token")
	}

	revoked, err := s.Blacklist.IsRevoked(ctx, token)
	if err != nil {
		return domain.User{}, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return domain.User{}, UnauthorizedError("invalid or expired token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return domain.User{}, UnauthorizedError("invalid or expired token")
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, UnauthorizedError("invalid or expired token")
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return domain.User{}, UnauthorizedError("invalid or expired token")
	}

	if len(requiredScopes) > 0 {
		granted, err := s.Store.Permissions().ListUserPermissions(ctx, user.ID)
		if err != nil {
			return domain.User{}, fmt.Errorf("list user permissions: %w", err)
		}
		if !hasAnyScope(granted, requiredScopes) {
			return domain.User{}, ForbiddenError("insufficient permissions")
		}
	}

	return user, nil
}

// hasAnyScope checks whether granted covers at least one required scope.
func hasAnyScope(granted, required []string) bool {
	for _, want := range required {
		if slices.Contains(granted, want) {
			return true
		}
	}
	return false
}
