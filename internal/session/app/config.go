package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)

	IdentityEndpoint      string        // Required: identity provider GraphQL endpoint
	IdentityTimeout       time.Duration // Optional: per-call timeout (default: 10s)
	IdentityRatePerMinute int           // Optional: outgoing call budget, 0 disables (default: 60)

	CredentialStore        string // Optional: credential backend (memory, sqlite) (default: sqlite)
	CredentialDatabaseFile string // Optional: SQLite file for the sqlite backend (default: ./session.db)
	CredentialNamespace    string // Optional: key prefix (default: afyapapo_)
	CredentialSealKey      string // Optional: secret used to encrypt stored values at rest

	RefreshInterval  time.Duration // Scheduler period (default: 60s)
	ExpiryBuffer     time.Duration // Early-expiry margin (default: 5m)
	RefreshThreshold time.Duration // Remaining lifetime that triggers refresh (default: 10m)
	RefreshTokenTTL  time.Duration // How long the refresh token is kept (default: 30 days)

	PolicyFile string // Optional: YAML overrides for the RBAC tables

	Port                 int           // Status server port, 0 disables it (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired credential sweep interval (default: 1h)
}

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// LoadConfig reads the environment, after loading a .env file when one
// exists in the working directory.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		IdentityEndpoint:      os.Getenv("IDENTITY_ENDPOINT"),
		IdentityTimeout:       getEnvDurationOrDefault("IDENTITY_TIMEOUT", 10*time.Second),
		IdentityRatePerMinute: getEnvIntOrDefault("IDENTITY_RATE_PER_MINUTE", 60),

		CredentialStore:        getEnvOrDefault("CREDENTIAL_STORE", StoreSQLite),
		CredentialDatabaseFile: getEnvOrDefault("CREDENTIAL_DATABASE_FILE", "session.db"),
		CredentialNamespace:    getEnvOrDefault("CREDENTIAL_NAMESPACE", "afyapapo_"),
		CredentialSealKey:      os.Getenv("CREDENTIAL_SEAL_KEY"),

		RefreshInterval:  getEnvDurationOrDefault("REFRESH_INTERVAL", 60*time.Second),
		ExpiryBuffer:     getEnvDurationOrDefault("EXPIRY_BUFFER", 5*time.Minute),
		RefreshThreshold: getEnvDurationOrDefault("REFRESH_THRESHOLD", 10*time.Minute),
		RefreshTokenTTL:  getEnvDurationOrDefault("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		PolicyFile: os.Getenv("RBAC_POLICY_FILE"),

		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.IdentityEndpoint == "" {
		errs = append(errs, errors.New("IDENTITY_ENDPOINT is required"))
	} else if u, err := url.Parse(c.IdentityEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("IDENTITY_ENDPOINT %q is not an absolute URL", c.IdentityEndpoint))
	}

	switch c.CredentialStore {
	case StoreMemory:
	case StoreSQLite:
		if c.CredentialDatabaseFile == "" {
			errs = append(errs, errors.New("CREDENTIAL_DATABASE_FILE is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("CREDENTIAL_STORE %q must be memory or sqlite", c.CredentialStore))
	}

	if c.CredentialSealKey != "" && len(c.CredentialSealKey) < 16 {
		errs = append(errs, errors.New("CREDENTIAL_SEAL_KEY must be at least 16 bytes"))
	}

	if c.ExpiryBuffer >= c.RefreshThreshold {
		errs = append(errs, fmt.Errorf("EXPIRY_BUFFER (%s) must be shorter than REFRESH_THRESHOLD (%s)", c.ExpiryBuffer, c.RefreshThreshold))
	}
	if c.IdentityRatePerMinute < 0 {
		errs = append(errs, errors.New("IDENTITY_RATE_PER_MINUTE must not be negative"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	return errors.Join(errs...)
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

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
