package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	DatabaseURL   string
	RedisURL      string
	Port          string
	Env           string
	SessionSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	WebhookBaseURL string
	WebhookStub    bool

	// Timezone is the reference timezone for lateness checks, daily resets,
	// and log windows.
	Timezone          string
	WorkdayStart      string // "HH:MM" in Timezone
	BreakLimitSeconds int64
	MonitorInterval   time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		Port:          getEnvWithDefault("PORT", "8080"),
		Env:           getEnvWithDefault("ENV", "development"),
		SessionSecret: os.Getenv("SESSION_SECRET"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),

		WebhookBaseURL: os.Getenv("WEBHOOK_BASE_URL"),
		WebhookStub:    getEnvBool("WEBHOOK_STUB", false),

		Timezone:          getEnvWithDefault("TIMEZONE", "Asia/Tashkent"),
		WorkdayStart:      getEnvWithDefault("WORKDAY_START", "09:00"),
		BreakLimitSeconds: getEnvInt64("BREAK_LIMIT_SECONDS", 3600),
		MonitorInterval:   getEnvDuration("MONITOR_INTERVAL", time.Minute),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	// Without a webhook host, notifications can only work in stub mode.
	if cfg.WebhookBaseURL == "" && !cfg.WebhookStub {
		cfg.WebhookStub = true
		log.Println("WARNING: WEBHOOK_BASE_URL not set, forcing webhook stub mode")
	}

	return cfg
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		log.Printf("WARNING: invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("WARNING: invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
