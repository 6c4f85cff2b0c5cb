package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := LoadConfig()

	assert.Equal(t, 5000, cfg.ServerPort)
	assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "auth-token", cfg.Auth.TokenHeader)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Zero(t, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.EnforceAdminRoles)
	assert.False(t, cfg.Ledger.StrictOrders)
	assert.Equal(t, "ledger-events", cfg.Ledger.EventsChannel)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "  padded  ")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("ENFORCE_ADMIN_ROLES", "true")
	t.Setenv("LEDGER_STRICT_ORDERS", "1")
	t.Setenv("PUBLIC_BASE_URL", "https://cdn.example.com/")
	t.Setenv("DB_USE_SSL", "not-a-bool")

	cfg := LoadConfig()

	assert.Equal(t, "padded", cfg.Auth.JWTSecret)
	assert.Equal(t, 8081, cfg.ServerPort)
	assert.Equal(t, StoreBackendMemory, cfg.StoreBackend)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.True(t, cfg.Auth.EnforceAdminRoles)
	assert.True(t, cfg.Ledger.StrictOrders)
	assert.Equal(t, "https://cdn.example.com", cfg.Storage.PublicBaseURL)
	assert.False(t, cfg.Database.UseSSL)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StoreBackend: StoreBackendMemory,
			Auth: AuthConfig{
				JWTSecret:   "secret",
				TokenHeader: "auth-token",
				BcryptCost:  10,
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }},
		{name: "cost too low", mutate: func(c *Config) { c.Auth.BcryptCost = 3 }},
		{name: "cost too high", mutate: func(c *Config) { c.Auth.BcryptCost = 32 }},
		{name: "empty header", mutate: func(c *Config) { c.Auth.TokenHeader = " " }},
		{name: "unknown store", mutate: func(c *Config) { c.StoreBackend = "sqlite" }},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Backend = "s3" }},
		{name: "unknown mq", mutate: func(c *Config) { c.MQ.Backend = "kafka" }},
		{name: "gcs storage", mutate: func(c *Config) { c.Storage.Backend = StorageBackendGCS }, ok: true},
		{name: "rabbitmq", mutate: func(c *Config) { c.MQ.Backend = MQBackendRabbitMQ }, ok: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
