// Package jwtx wraps github.com/golang-jwt/jwt/v5 with a small signer and
// verifier surface for symmetric session tokens.
package jwtx

import "errors"

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	// Verify checks the signature and the exp/nbf claims.
	Verify(token string) (Claims, error)

	// Decode checks only the signature, skipping lifetime validation. Used
	// when revoking a still-valid or already-expired token: revocation needs
	// the token's own exp claim, not its liveness.
	Decode(token string) (Claims, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)
