// Package config loads the server configuration from the environment and the
// CLI configuration from a YAML file.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config is the API server configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	LogLevel     string
	QueryTimeout time.Duration

	// Sessions
	JWTSecret      string
	SessionTTL     time.Duration
	GoogleClientID string
	CookieSecure   bool

	// Token revocation. An empty RedisAddr keeps revocations in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Avatar uploads. Empty disables them.
	CloudinaryURL string

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() Config {
	return Config{
		DatabaseURL:    getEnvRequired("DATABASE_URL"),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		QueryTimeout:   getEnvDuration("QUERY_TIMEOUT", 5*time.Second),
		JWTSecret:      getEnvRequired("JWT_SECRET"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		CookieSecure:   getEnvBool("COOKIE_SECURE", true),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		CloudinaryURL:  getEnv("CLOUDINARY_URL", ""),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvRequired(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("required environment variable " + key + " is not set")
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return n
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return d
	}
	return fallback
}
