package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ADMIN_BASE_URL", "ADMIN_USERNAME", "ADMIN_PASSWORD", "REQUEST_TIMEOUT",
		"STATS_POLL_INTERVAL", "HEALTH_POLL_INTERVAL", "REDIS_URL", "REQUEST_RATE_LIMIT",
		"ADMIN_LIST_KEYS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.AdminBaseURL)
	assert.Equal(t, 30*time.Second, cfg.StatsPollInterval)
	assert.Equal(t, 5*time.Second, cfg.HealthPollInterval)
	assert.Equal(t, time.Duration(0), cfg.RequestTimeout)
	assert.Equal(t, 0.0, cfg.RequestRateLimit)
	assert.Equal(t, 0, cfg.SharedRateLimit)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.ListKeys)
	assert.NotEmpty(t, cfg.InstanceID)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADMIN_BASE_URL", "https://music.example.com")
	t.Setenv("STATS_POLL_INTERVAL", "10s")
	t.Setenv("HEALTH_POLL_INTERVAL", "1500ms")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("REQUEST_RATE_LIMIT", "2.5")
	t.Setenv("REQUEST_RATE_LIMIT_PER_MINUTE", "120")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "admin123")
	t.Setenv("ADMIN_LIST_KEYS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://music.example.com", cfg.AdminBaseURL)
	assert.True(t, cfg.ListKeys)
	assert.Equal(t, 10*time.Second, cfg.StatsPollInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.HealthPollInterval)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2.5, cfg.RequestRateLimit)
	assert.Equal(t, 120, cfg.SharedRateLimit)
	assert.Equal(t, "admin", cfg.AdminUsername)
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("STATS_POLL_INTERVAL", "often")
	t.Setenv("REQUEST_RATE_LIMIT", "fast")
	t.Setenv("REQUEST_RATE_LIMIT_PER_MINUTE", "lots")
	t.Setenv("ADMIN_LIST_KEYS", "sometimes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.ListKeys)
	assert.Equal(t, 30*time.Second, cfg.StatsPollInterval)
	assert.Equal(t, 0.0, cfg.RequestRateLimit)
	assert.Equal(t, 0, cfg.SharedRateLimit)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AdminBaseURL:       "http://localhost:5000",
			StatsPollInterval:  30 * time.Second,
			HealthPollInterval: 5 * time.Second,
		}
	}

	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"empty base url":       func(c *Config) { c.AdminBaseURL = "" },
		"zero stats interval":  func(c *Config) { c.StatsPollInterval = 0 },
		"negative health":      func(c *Config) { c.HealthPollInterval = -time.Second },
		"negative timeout":     func(c *Config) { c.RequestTimeout = -time.Second },
		"negative rate":        func(c *Config) { c.RequestRateLimit = -1 },
		"negative shared rate": func(c *Config) { c.SharedRateLimit = -5 },
		"username no password": func(c *Config) { c.AdminUsername = "admin" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
