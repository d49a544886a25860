package domain

import (
	"strings"
	"time"
	"unicode"
)

type User struct {
	ID           int64
	RoleID       *int64 // nullable foreign key; the role is referenced, not owned
	FirstName    string
	LastName     string
	Email        string // stored lowercase, globally unique
	PasswordHash string // argon2id encoded
	IsVerified   bool
	IsActive     bool
	LastActive   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lowercases and trims an email address. Every lookup and
// write goes through this so the unique constraint is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmailDomain reports whether the email's domain is on the allow-list.
// An empty allow-list accepts any domain.
func ValidateEmailDomain(email string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range allowed {
		if domain == strings.ToLower(strings.TrimSpace(d)) {
			return true
		}
	}
	return false
}

// ValidatePasswordComplexity requires length >= 8, at least one digit and at
// least one uppercase letter.
func ValidatePasswordComplexity(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasDigit, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	return hasDigit && hasUpper
}
