package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
	require.Equal(t, "", NormalizeEmail("   "))
}

func TestValidateEmailDomain(t *testing.T) {
	t.Parallel()

	allowed := []string{"example.com", "corp.example.org"}

	require.True(t, ValidateEmailDomain("alice@example.com", allowed))
	require.True(t, ValidateEmailDomain("bob@CORP.example.org", allowed))
	require.False(t, ValidateEmailDomain("eve@elsewhere.net", allowed))
	require.False(t, ValidateEmailDomain("not-an-email", allowed))
	require.False(t, ValidateEmailDomain("trailing@", allowed))

	// Empty allow-list accepts anything well-formed enough to have a domain.
	require.True(t, ValidateEmailDomain("anyone@anywhere.io", nil))
}

func TestValidatePasswordComplexity(t *testing.T) {
	t.Parallel()

	require.True(t, ValidatePasswordComplexity("Passw0rd"))
	require.False(t, ValidatePasswordComplexity("short1A"))   // < 8 chars
	require.False(t, ValidatePasswordComplexity("password1")) // no uppercase
	require.False(t, ValidatePasswordComplexity("Password"))  // no digit
}

func TestParseOTPPurpose(t *testing.T) {
	t.Parallel()

	p, err := ParseOTPPurpose("register")
	require.NoError(t, err)
	require.Equal(t, OTPPurposeRegister, p)

	p, err = ParseOTPPurpose("reset_password")
	require.NoError(t, err)
	require.Equal(t, OTPPurposeResetPassword, p)

	_, err = ParseOTPPurpose("mfa")
	require.Error(t, err)
}
