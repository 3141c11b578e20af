// Package config provides configuration management for spw-hook
package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/alexbotov/spw/pkg/spworlds"
)

// Config holds all configuration for spw-hook
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	SPWorlds SPWorldsConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds audit store configuration. An empty DSN disables
// the audit log.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// Enabled reports whether an audit store is configured
func (c DatabaseConfig) Enabled() bool {
	return c.DSN != ""
}

// AuthConfig holds live feed token configuration
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// SPWorldsConfig holds the card credentials and API settings
type SPWorldsConfig struct {
	BaseURL      string
	CardID       string
	Token        string
	Timeout      time.Duration
	RequestDelay time.Duration
}

// ClientConfig builds the library client configuration
func (c SPWorldsConfig) ClientConfig(logger *zap.Logger) *spworlds.ClientConfig {
	cfg := spworlds.DefaultConfig()
	cfg.BaseURL = c.BaseURL
	cfg.Credentials = spworlds.Credentials{CardID: c.CardID, Token: c.Token}
	cfg.Timeout = c.Timeout
	cfg.Logger = logger
	return cfg
}

// LogConfig holds logger configuration
type LogConfig struct {
	Development bool
}

// Load loads configuration from environment with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SPW_PORT", "8080"),
			ReadTimeout:     getDuration("SPW_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration("SPW_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: getEnv("SPW_DB_DRIVER", "postgres"),
			DSN:    getEnv("SPW_DB_DSN", ""),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("SPW_JWT_SECRET", "spw-dev-secret-change-in-production"),
			TokenExpiry: getDuration("SPW_TOKEN_EXPIRY", 24*time.Hour),
		},
		SPWorlds: SPWorldsConfig{
			BaseURL:      getEnv("SPW_BASE_URL", spworlds.DefaultBaseURL),
			CardID:       getEnv("SPW_CARD_ID", ""),
			Token:        getEnv("SPW_CARD_TOKEN", ""),
			Timeout:      getDuration("SPW_TIMEOUT", 30*time.Second),
			RequestDelay: getDuration("SPW_REQUEST_DELAY", spworlds.DefaultRequestDelay),
		},
		Log: LogConfig{
			Development: getBool("SPW_LOG_DEV", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}
