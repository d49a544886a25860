package domain

import "time"

// BlacklistedToken records a session token revoked before its natural expiry.
// ExpiresAt is copied from the token's own exp claim: the entry only needs to
// outlive the token itself, after which cleanup may purge it.
type BlacklistedToken struct {
	ID        int64
	Token     string // raw token string, unique
	ExpiresAt time.Time
	CreatedAt time.Time
}
