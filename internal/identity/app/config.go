package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Issuer        string        // Issuer claim for tokens (default: identity)
	SigningSecret string        // Required: symmetric secret for token signing
	Algorithm     string        // JWT signing algorithm (HS256, HS384, HS512) (default: HS256)
	AccessTTL     time.Duration // Access token lifetime (default: 15m)

	OTPTTL          time.Duration // One-time code lifetime (default: 10m)
	OTPLength       int           // One-time code digit count (default: 6)
	AcceptedDomains []string      // Optional: comma-separated email domain allow-list

	SMTPHost     string // SMTP relay host (default: localhost)
	SMTPPort     int    // SMTP relay port (default: 587)
	SMTPUsername string // Optional: SMTP auth username
	SMTPPassword string // Optional: SMTP auth password
	MailFrom     string // From address on outbound mail (default: noreply@localhost)

	DatabaseFile         string        // Path to the SQLite database file (default: ./identity.db)
	PepperFile           string        // Path to the password hashing pepper file (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired OTP/blacklist sweep interval (default: 1h)
}

// LoadConfig reads configuration from the environment, with an optional
// .env file filling in anything unset.
func LoadConfig() (Config, error) {
	// Missing .env is fine; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := Config{
		Issuer:        getEnvOrDefault("IDENTITY_ISSUER", "identity"),
		SigningSecret: os.Getenv("IDENTITY_SIGNING_SECRET"),
		Algorithm:     getEnvOrDefault("IDENTITY_ALGORITHM", "HS256"),
		AccessTTL:     getEnvDurationOrDefault("IDENTITY_ACCESS_TTL", 15*time.Minute),

		OTPTTL:    getEnvDurationOrDefault("IDENTITY_OTP_TTL", 10*time.Minute),
		OTPLength: getEnvIntOrDefault("IDENTITY_OTP_LENGTH", 6),

		SMTPHost:     getEnvOrDefault("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnvOrDefault("MAIL_FROM", "noreply@localhost"),

		DatabaseFile:         getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"),
		PepperFile:           getEnvOrDefault("IDENTITY_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if domains := os.Getenv("IDENTITY_ACCEPTED_DOMAINS"); domains != "" {
		for _, d := range strings.Split(domains, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.AcceptedDomains = append(cfg.AcceptedDomains, strings.ToLower(d))
			}
		}
	}

	if cfg.SigningSecret == "" {
		return Config{}, errors.New("IDENTITY_SIGNING_SECRET is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
