package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/store"
)

// UserService covers account reads and the profile mutations that are not
// authentication flows (those live on AuthService).
type UserService struct {
	Store  store.Store
	Mailer Mailer

	// AcceptedDomains is the email allow-list; empty accepts every domain.
	AcceptedDomains []string
}

func (s *UserService) Get(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, NotFoundError("user not found")
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx, offset, normalizeLimit(limit))
}

// UpdateProfileParams carries the mutable profile fields. Email goes
// through the same domain and uniqueness checks as registration.
type UpdateProfileParams struct {
	FirstName string
	LastName  string
	Email     string
	RoleID    *int64
}

// UpdateProfile mutates a user's profile. An email change notifies the new
// address after the row commits; the notification failing surfaces as a
// server error but does not undo the change.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, p UpdateProfileParams) (domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.FirstName == "" || p.LastName == "" {
		return domain.User{}, ValidationError("first and last name are required")
	}

	email := domain.NormalizeEmail(p.Email)
	emailChanged := email != user.Email
	if emailChanged {
		if !domain.ValidateEmailDomain(email, s.AcceptedDomains) {
			return domain.User{}, ValidationError("email domain not accepted")
		}
		if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
			return domain.User{}, ConflictError("email already in use")
		} else if !errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("check email: %w", err)
		}
	}

	if p.RoleID != nil {
		if _, err := s.Store.Roles().GetRoleByID(ctx, *p.RoleID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.User{}, NotFoundError("role not found")
			}
			return domain.User{}, fmt.Errorf("get role: %w", err)
		}
	}

	user.FirstName = p.FirstName
	user.LastName = p.LastName
	user.Email = email
	user.RoleID = p.RoleID

	if err := s.Store.Users().UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ConflictError("email already in use")
		}
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}

	if emailChanged {
		if err := s.Mailer.SendEmailChanged(ctx, email, user.FirstName); err != nil {
			return domain.User{}, ServerError("failed to send email change notification")
		}
	}

	return s.Get(ctx, id)
}

// Deactivate is the soft delete: the account stops authenticating but the
// row and its history stay.
func (s *UserService) Deactivate(ctx context.Context, id int64) error {
	err := s.Store.Users().DeactivateUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("user not found")
		}
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}

// Delete hard-deletes the account; the user's OTP rows cascade with it.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.Store.Users().DeleteUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("user not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
