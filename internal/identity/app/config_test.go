package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("IDENTITY_SIGNING_SECRET", "test-secret")
	t.Setenv("IDENTITY_ACCEPTED_DOMAINS", "Example.com, corp.example.org ,")
	t.Setenv("IDENTITY_ACCESS_TTL", "30m")
	t.Setenv("IDENTITY_OTP_LENGTH", "8")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "test-secret", cfg.SigningSecret)
	require.Equal(t, "HS256", cfg.Algorithm)
	require.Equal(t, 30*time.Minute, cfg.AccessTTL)
	require.Equal(t, 8, cfg.OTPLength)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, []string{"example.com", "corp.example.org"}, cfg.AcceptedDomains)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("IDENTITY_SIGNING_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestDurationFallbacks(t *testing.T) {
	t.Setenv("HOUSEKEEPING_INTERVAL", "15")
	require.Equal(t, 15*time.Minute, getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour))

	t.Setenv("HOUSEKEEPING_INTERVAL", "bogus")
	require.Equal(t, time.Hour, getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour))
}
