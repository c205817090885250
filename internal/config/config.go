package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string

	// Admin API
	AdminBaseURL     string
	AdminUsername    string
	AdminPassword    string
	AdminTokenSecret string
	RequestTimeout   time.Duration
	RequestRateLimit float64
	// Requests per minute shared by every console on the same Redis
	SharedRateLimit  int

	// Pollers
	StatsPollInterval  time.Duration
	HealthPollInterval time.Duration
	// Also fetch the masked key list on every dashboard refresh
	ListKeys bool

	// Key events
	RedisURL         string
	KeyEventsChannel string
	InstanceID       string

	// Notifications
	DiscordWebhookURL string
	DiscordBotToken   string
	DiscordClientID   string
	DiscordGuildID    string

	// Local stub server
	StubPort    string
	StubRevenue float64
}

func Load() (*Config, error) {
	// Try loading from current directory first, then parent.
	// We ignore errors here as we might be running in an environment
	// where env vars are set directly (e.g. docker/k8s).
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		AdminBaseURL:     getEnv("ADMIN_BASE_URL", "http://localhost:5000"),
		AdminUsername:    getEnv("ADMIN_USERNAME", ""),
		AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
		AdminTokenSecret: getEnv("ADMIN_TOKEN_SECRET", ""),
		// Zero keeps the transport default: no timeout
		RequestTimeout:   getDurationEnv("REQUEST_TIMEOUT", 0),
		RequestRateLimit: getFloatEnv("REQUEST_RATE_LIMIT", 0),
		SharedRateLimit:  getIntEnv("REQUEST_RATE_LIMIT_PER_MINUTE", 0),

		StatsPollInterval:  getDurationEnv("STATS_POLL_INTERVAL", 30*time.Second),
		HealthPollInterval: getDurationEnv("HEALTH_POLL_INTERVAL", 5*time.Second),
		ListKeys:           getBoolEnv("ADMIN_LIST_KEYS", false),

		// Empty disables cross-console key events
		RedisURL:         getEnv("REDIS_URL", ""),
		KeyEventsChannel: getEnv("KEY_EVENTS_CHANNEL", "admin:key_events"),
		InstanceID:       getEnv("INSTANCE_ID", defaultInstanceID()),

		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		DiscordBotToken:   getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordClientID:   getEnv("DISCORD_CLIENT_ID", ""),
		DiscordGuildID:    getEnv("DISCORD_GUILD_ID", ""),

		StubPort:    getEnv("STUB_PORT", "5000"),
		StubRevenue: getFloatEnv("STUB_REVENUE", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the pollers and client cannot run with
func (c *Config) Validate() error {
	if c.AdminBaseURL == "" {
		return fmt.Errorf("ADMIN_BASE_URL must not be empty")
	}
	if c.StatsPollInterval <= 0 {
		return fmt.Errorf("STATS_POLL_INTERVAL must be positive, got %s", c.StatsPollInterval)
	}
	if c.HealthPollInterval <= 0 {
		return fmt.Errorf("HEALTH_POLL_INTERVAL must be positive, got %s", c.HealthPollInterval)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	if c.RequestRateLimit < 0 {
		return fmt.Errorf("REQUEST_RATE_LIMIT must not be negative, got %g", c.RequestRateLimit)
	}
	if c.SharedRateLimit < 0 {
		return fmt.Errorf("REQUEST_RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.SharedRateLimit)
	}
	if c.AdminUsername != "" && c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_USERNAME is set")
	}
	return nil
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "adminctl"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
