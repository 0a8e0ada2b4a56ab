package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		IdentityEndpoint:     "http://identity.local/graphql",
		IdentityTimeout:      time.Second,
		CredentialStore:      StoreMemory,
		CredentialNamespace:  "afyapapo_",
		RefreshInterval:      time.Minute,
		ExpiryBuffer:         5 * time.Minute,
		RefreshThreshold:     10 * time.Minute,
		RefreshTokenTTL:      24 * time.Hour,
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("IDENTITY_ENDPOINT", "https://api.example.org/graphql")

		cfg := LoadConfig()
		require.Equal(t, "dev", cfg.Env)
		require.Equal(t, StoreSQLite, cfg.CredentialStore)
		require.Equal(t, "session.db", cfg.CredentialDatabaseFile)
		require.Equal(t, "afyapapo_", cfg.CredentialNamespace)
		require.Equal(t, 60*time.Second, cfg.RefreshInterval)
		require.Equal(t, 5*time.Minute, cfg.ExpiryBuffer)
		require.Equal(t, 10*time.Minute, cfg.RefreshThreshold)
		require.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
		require.Equal(t, 8080, cfg.Port)
		require.NoError(t, cfg.Validate())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("IDENTITY_ENDPOINT", "https://api.example.org/graphql")
		t.Setenv("CREDENTIAL_STORE", "memory")
		t.Setenv("REFRESH_INTERVAL", "30s")
		t.Setenv("REFRESH_THRESHOLD", "15")
		t.Setenv("IDENTITY_RATE_PER_MINUTE", "not-a-number")
		t.Setenv("PORT", "0")

		cfg := LoadConfig()
		require.Equal(t, StoreMemory, cfg.CredentialStore)
		require.Equal(t, 30*time.Second, cfg.RefreshInterval)
		require.Equal(t, 15*time.Minute, cfg.RefreshThreshold, "bare integers are minutes")
		require.Equal(t, 60, cfg.IdentityRatePerMinute, "unparsable values fall back")
		require.Equal(t, 0, cfg.Port)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing endpoint", func(c *Config) { c.IdentityEndpoint = "" }, "IDENTITY_ENDPOINT is required"},
		{"relative endpoint", func(c *Config) { c.IdentityEndpoint = "/graphql" }, "not an absolute URL"},
		{"unknown store", func(c *Config) { c.CredentialStore = "redis" }, "must be memory or sqlite"},
		{"sqlite without file", func(c *Config) { c.CredentialStore = StoreSQLite; c.CredentialDatabaseFile = "" }, "CREDENTIAL_DATABASE_FILE"},
		{"short seal key", func(c *Config) { c.CredentialSealKey = "short" }, "at least 16 bytes"},
		{"buffer past threshold", func(c *Config) { c.ExpiryBuffer = 20 * time.Minute }, "must be shorter than REFRESH_THRESHOLD"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}

	require.NoError(t, validConfig().Validate())
}
