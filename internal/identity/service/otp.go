package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/store"
	"github.com/arcwell/identity/pkg/cryptox"
)

const (
	DefaultOTPTTL    = 10 * time.Minute
	DefaultOTPLength = 6
)

// OTPService owns the one-time-code lifecycle: at most one valid code per
// (email, purpose) pair, single use, read-time expiry.
type OTPService struct {
	Store  store.Store
	Mailer Mailer

	TTL        time.Duration
	CodeLength int

	// Now is the clock; tests pin it for deterministic expiry.
	Now func() time.Time
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *OTPService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultOTPTTL
}

func (s *OTPService) codeLength() int {
	if s.CodeLength > 0 {
		return s.CodeLength
	}
	return DefaultOTPLength
}

// CreateAndSend issues a fresh code for the pair, invalidating any earlier
// unused codes in the same transaction, then dispatches the email. The row
// commits before dispatch, so a mail failure surfaces as a server error
// while the code stays usable (delivery is at-least-once).
func (s *OTPService) CreateAndSend(ctx context.Context, email string, purpose domain.OTPPurpose) error {
	email = domain.NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("user not found")
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if purpose == domain.OTPPurposeRegister && user.IsVerified {
		return ValidationError("email already verified")
	}

	code, err := cryptox.GenerateNumericCode(s.codeLength())
	if err != nil {
		return fmt.Errorf("generate otp code: %w", err)
	}

	otp := domain.OTP{
		UserID:    &user.ID,
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(s.ttl()),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.OTPs().InvalidateOTPs(ctx, email, purpose); err != nil {
			return fmt.Errorf("invalidate prior otps: %w", err)
		}
		if _, err := tx.OTPs().CreateOTP(ctx, otp); err != nil {
			return fmt.Errorf("create otp: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.Mailer.SendOTP(ctx, email, purpose, code, s.ttl()); err != nil {
		return ServerError("failed to send otp email")
	}
	return nil
}

// Verify consumes a code. Lookup and consumption share one transaction so
// concurrent callers presenting the same code cannot both succeed. A miss is
// disambiguated against the latest code for the pair so the caller learns
// whether it was spent, stale, or simply wrong. For registration codes the
// user's verified flag flips in the same transaction that marks the code used.
func (s *OTPService) Verify(ctx context.Context, email, code string, purpose domain.OTPPurpose) error {
	email = domain.NormalizeEmail(email)
	now := s.now()

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		otp, err := tx.OTPs().GetValidOTP(ctx, email, code, purpose, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return err
			}
			return fmt.Errorf("lookup otp: %w", err)
		}

		// The guarded mark loses against a racing consumer, surfacing the
		// same miss as a stale lookup.
		if err := tx.OTPs().MarkOTPUsed(ctx, otp.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return err
			}
			return fmt.Errorf("mark otp used: %w", err)
		}
		if purpose != domain.OTPPurposeRegister {
			return nil
		}

		userID, err := s.resolveUserID(ctx, tx, otp)
		if err != nil {
			return err
		}
		if err := tx.Users().SetVerified(ctx, userID, true); err != nil {
			return fmt.Errorf("set verified: %w", err)
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return s.classifyMiss(ctx, email, purpose, now)
	}
	return err
}

// classifyMiss inspects the most recent code for the pair to produce a
// precise failure message: a used latest code reports spent, an expired one
// stale, anything else is simply a wrong code.
func (s *OTPService) classifyMiss(ctx context.Context, email string, purpose domain.OTPPurpose, now time.Time) error {
	latest, err := s.Store.OTPs().GetLatestOTP(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ValidationError("invalid otp code")
		}
		return fmt.Errorf("lookup latest otp: %w", err)
	}

	switch {
	case latest.Used:
		return ValidationError("otp has already been used")
	case latest.Expired(now):
		return ValidationError("otp has expired")
	}
	return ValidationError("invalid otp code")
}

func (s *OTPService) resolveUserID(ctx context.Context, tx store.Tx, otp domain.OTP) (int64, error) {
	if otp.UserID != nil {
		return *otp.UserID, nil
	}
	user, err := tx.Users().GetUserByEmail(ctx, otp.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, NotFoundError("user not found")
		}
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	return user.ID, nil
}

// CleanupExpired removes codes past expiry; housekeeping calls it on a timer.
func (s *OTPService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.Store.OTPs().DeleteExpiredOTPs(ctx, s.now())
}
