// Package mailer delivers the service's transactional email over SMTP
// using embedded HTML templates.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/arcwell/identity/internal/identity/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer implements service.Mailer. A connection is dialed per send;
// volume is low enough that pooling is not worth the state.
type SMTPMailer struct {
	client    *mail.Client
	from      string
	templates *template.Template
}

func New(cfg Config) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &SMTPMailer{client: client, from: cfg.From, templates: templates}, nil
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to string, purpose domain.OTPPurpose, code string, expiresIn time.Duration) error {
	subject := "Your verification code"
	tmpl := "otp_register.html"
	if purpose == domain.OTPPurposeResetPassword {
		subject = "Your password reset code"
		tmpl = "otp_reset.html"
	}

	return m.send(ctx, to, subject, tmpl, map[string]any{
		"Code":    code,
		"Minutes": int(expiresIn.Minutes()),
	})
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, firstName, password string) error {
	return m.send(ctx, to, "Your account is ready", "welcome.html", map[string]any{
		"FirstName": firstName,
		"Email":     to,
		"Password":  password,
	})
}

func (m *SMTPMailer) SendEmailChanged(ctx context.Context, to, firstName string) error {
	return m.send(ctx, to, "Your email address was updated", "email_changed.html", map[string]any{
		"FirstName": firstName,
		"Email":     to,
	})
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, tmpl string, data map[string]any) error {
	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
