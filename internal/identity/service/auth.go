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

// loginFailedMsg is shared by every login failure mode so a caller cannot
// probe which emails have accounts.
const loginFailedMsg = "incorrect email or password"

// AuthService orchestrates the authentication flows over the credential,
// OTP, token and blacklist services.
type AuthService struct {
	Store     store.Store
	Tokens    *TokenService
	OTPs      *OTPService
	Blacklist *BlacklistService
	Mailer    Mailer

	// AcceptedDomains is the email allow-list; empty accepts every domain.
	AcceptedDomains []string

	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// SelfRegisterParams is the public sign-up request. Accounts start
// unverified; a registration OTP flips the flag.
type SelfRegisterParams struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	PasswordConfirm string
}

func (s *AuthService) SelfRegister(ctx context.Context, p SelfRegisterParams) (domain.User, error) {
	email := domain.NormalizeEmail(p.Email)
	if !domain.ValidateEmailDomain(email, s.AcceptedDomains) {
		return domain.User{}, ValidationError("email domain not accepted")
	}
	if !domain.ValidatePasswordComplexity(p.Password) {
		return domain.User{}, ValidationError("password must be at least 8 characters with a digit and an uppercase letter")
	}
	if p.Password != p.PasswordConfirm {
		return domain.User{}, ValidationError("passwords do not match")
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.createUser(ctx, domain.User{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	})
}

// AdminCreateParams is the operator-driven account creation request. The
// account gets a generated password delivered by the welcome email.
type AdminCreateParams struct {
	FirstName string
	LastName  string
	Email     string
	RoleID    *int64
}

// AdminCreate provisions an account with a random initial password and
// emails it to the new user. The user row commits before the send, so a
// mail failure surfaces as a server error while the account exists; the
// operator can re-trigger delivery through the reset flow.
func (s *AuthService) AdminCreate(ctx context.Context, p AdminCreateParams) (domain.User, error) {
	email := domain.NormalizeEmail(p.Email)
	if !domain.ValidateEmailDomain(email, s.AcceptedDomains) {
		return domain.User{}, ValidationError("email domain not accepted")
	}

	if p.RoleID != nil {
		if _, err := s.Store.Roles().GetRoleByID(ctx, *p.RoleID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.User{}, NotFoundError("role not found")
			}
			return domain.User{}, fmt.Errorf("get role: %w", err)
		}
	}

	password, err := cryptox.GeneratePassword(cryptox.DefaultPasswordLength)
	if err != nil {
		return domain.User{}, fmt.Errorf("generate password: %w", err)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.createUser(ctx, domain.User{
		RoleID:       p.RoleID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        email,
		PasswordHash: hash,
		IsVerified:   true,
		IsActive:     true,
	})
	if err != nil {
		return domain.User{}, err
	}

	if err := s.Mailer.SendWelcome(ctx, email, user.FirstName, password); err != nil {
		return domain.User{}, ServerError("failed to send welcome email")
	}
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, u domain.User) (domain.User, error) {
	id, err := s.Store.Users().CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ConflictError("email already registered")
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	created, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("reload user: %w", err)
	}
	return created, nil
}

// Login authenticates credentials and issues an access token. Unknown
// email, wrong password and deactivated account are indistinguishable to
// the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, time.Time, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, "", time.Time{}, UnauthorizedError(loginFailedMsg)
		}
		return domain.User{}, "", time.Time{}, fmt.Errorf("lookup user: %w", err)
	}

	if cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		return domain.User{}, "", time.Time{}, UnauthorizedError(loginFailedMsg)
	}
	if !user.IsActive {
		return domain.User{}, "", time.Time{}, UnauthorizedError(loginFailedMsg)
	}

	now := s.now()
	if err := s.Store.Users().UpdateLastActive(ctx, user.ID, now); err != nil {
		return domain.User{}, "", time.Time{}, fmt.Errorf("update last active: %w", err)
	}
	user.LastActive = &now

	token, expiresAt, err := s.Tokens.Issue(user)
	if err != nil {
		return domain.User{}, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// Logout stamps activity and revokes the presented token. Logging out
// twice with the same token succeeds both times.
func (s *AuthService) Logout(ctx context.Context, userID int64, token string) error {
	if err := s.Store.Users().UpdateLastActive(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("update last active: %w", err)
	}
	return s.Blacklist.Revoke(ctx, token)
}

// ForgotPassword starts the reset flow by mailing a reset code.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.OTPs.CreateAndSend(ctx, email, domain.OTPPurposeResetPassword)
}

// ResetPassword completes the OTP-gated reset: the code must verify before
// the new password is stored.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword, confirm string) error {
	if !domain.ValidatePasswordComplexity(newPassword) {
		return ValidationError("password must be at least 8 characters with a digit and an uppercase letter")
	}
	if newPassword != confirm {
		return ValidationError("passwords do not match")
	}

	if err := s.OTPs.Verify(ctx, email, code, domain.OTPPurposeResetPassword); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("user not found")
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	return s.storePassword(ctx, user.ID, newPassword)
}

// UpdatePassword is the old-password-gated change for a signed-in user.
func (s *AuthService) UpdatePassword(ctx context.Context, userID int64, oldPassword, newPassword, confirm string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("user not found")
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if cryptox.VerifyPassword(oldPassword, user.PasswordHash) != nil {
		return ValidationError("incorrect current password")
	}
	if !domain.ValidatePasswordComplexity(newPassword) {
		return ValidationError("password must be at least 8 characters with a digit and an uppercase letter")
	}
	if newPassword != confirm {
		return ValidationError("passwords do not match")
	}

	return s.storePassword(ctx, userID, newPassword)
}

func (s *AuthService) storePassword(ctx context.Context, userID int64, password string) error {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	return nil
}
