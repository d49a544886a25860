package domain

import (
	"fmt"
	"time"
)

// OTPPurpose tags what a one-time code proves control of an email address for.
type OTPPurpose string

const (
	OTPPurposeRegister      OTPPurpose = "register"
	OTPPurposeResetPassword OTPPurpose = "reset_password"
)

// ParseOTPPurpose validates a wire-format purpose tag.
func ParseOTPPurpose(s string) (OTPPurpose, error) {
	switch OTPPurpose(s) {
	case OTPPurposeRegister, OTPPurposeResetPassword:
		return OTPPurpose(s), nil
	}
	return "", fmt.Errorf("unknown otp purpose %q", s)
}

// OTP is a single-use numeric code bound to an (email, purpose) pair.
// At most one valid (unused, unexpired) OTP exists per pair at a time.
type OTP struct {
	ID        int64
	UserID    *int64 // owning user; rows cascade when the user is hard-deleted
	Email     string
	Code      string // zero-padded numeric, crypto-random
	Purpose   OTPPurpose
	Used      bool // terminal once set
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (o OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
