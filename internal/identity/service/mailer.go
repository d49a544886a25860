package service

import (
	"context"
	"time"

	"github.com/arcwell/identity/internal/identity/domain"
)

// Mailer is the outbound email collaborator. Implementations live in
// internal/identity/mailer; tests substitute function-valued fakes.
type Mailer interface {
	// SendOTP delivers a one-time code. The template depends on the purpose
	// (account verification vs password reset).
	SendOTP(ctx context.Context, to string, purpose domain.OTPPurpose, code string, expiresIn time.Duration) error

	// SendWelcome delivers the generated initial password for admin-created
	// accounts.
	SendWelcome(ctx context.Context, to, firstName, password string) error

	// SendEmailChanged notifies the new address that it is now attached to
	// the account.
	SendEmailChanged(ctx context.Context, to, firstName string) error
}

// MailerFuncs adapts plain functions into a Mailer. Nil funcs succeed,
// which keeps test setup short when a path does not care about mail.
type MailerFuncs struct {
	OTPFunc          func(ctx context.Context, to string, purpose domain.OTPPurpose, code string, expiresIn time.Duration) error
	WelcomeFunc      func(ctx context.Context, to, firstName, password string) error
	EmailChangedFunc func(ctx context.Context, to, firstName string) error
}

func (m MailerFuncs) SendOTP(ctx context.Context, to string, purpose domain.OTPPurpose, code string, expiresIn time.Duration) error {
	if m.OTPFunc == nil {
		return nil
	}
	return m.OTPFunc(ctx, to, purpose, code, expiresIn)
}

func (m MailerFuncs) SendWelcome(ctx context.Context, to, firstName, password string) error {
	if m.WelcomeFunc == nil {
		return nil
	}
	return m.WelcomeFunc(ctx, to, firstName, password)
}

func (m MailerFuncs) SendEmailChanged(ctx context.Context, to, firstName string) error {
	if m.EmailChangedFunc == nil {
		return nil
	}
	return m.EmailChangedFunc(ctx, to, firstName)
}
