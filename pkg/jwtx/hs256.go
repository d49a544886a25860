package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// supportedMethods maps the configurable algorithm names to their HMAC
// signing methods. Only symmetric algorithms are supported: a single
// service issues and verifies its own tokens, so there is no key to publish.
var supportedMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// HMACSigner signs claims with a shared secret.
type HMACSigner struct {
	secret []byte
	method *jwt.SigningMethodHMAC
}

// NewHMACSigner creates a signer for the given algorithm name (HS256, HS384
// or HS512). The secret must be non-empty.
func NewHMACSigner(alg string, secret []byte) (*HMACSigner, error) {
	method, ok := supportedMethods[alg]
	if !ok {
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty signing secret")
	}
	return &HMACSigner{secret: secret, method: method}, nil
}

func (s *HMACSigner) Alg() string { return s.method.Alg() }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HMACSigner) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// HMACVerifier validates tokens signed by an HMACSigner.
type HMACVerifier struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	issuer string // empty means "don't care"
}

// NewHMACVerifier creates a verifier matching NewHMACSigner's parameters.
func NewHMACVerifier(alg string, secret []byte, issuer string) (*HMACVerifier, error) {
	method, ok := supportedMethods[alg]
	if !ok {
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty signing secret")
	}
	return &HMACVerifier{secret: secret, method: method, issuer: issuer}, nil
}

// Verify checks the signature and standard lifetime claims.
func (v *HMACVerifier) Verify(token string) (Claims, error) {
	return v.parse(token, false)
}

// Decode checks only the signature. See Verifier.Decode.
func (v *HMACVerifier) Decode(token string) (Claims, error) {
	return v.parse(token, true)
}

func (v *HMACVerifier) parse(token string, skipClaimsValidation bool) (Claims, error) {
	opts := []jwt.ParserOption{
		// Pin the exact algorithm so a token signed with a different HMAC
		// variant (or "none") is rejected before signature checking.
		jwt.WithValidMethods([]string{v.method.Alg()}),
	}
	if skipClaimsValidation {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != v.method.Alg() {
			return nil, ErrAlgMismatch
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	default:
		return fmt.Errorf("jwtx: parse: %w", err)
	}
}
