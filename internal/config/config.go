// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Conversion ConversionConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	History    HistoryConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 5000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"5000"`

	// ReadTimeout is the maximum duration for reading the request (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StorageConfig holds the directories used for staged uploads and listings.
type StorageConfig struct {
	// UploadDir stages uploaded exports while they are converted (default: uploads)
	UploadDir string `env:"UPLOAD_DIR" default:"uploads"`

	// OutputDir stores generated spreadsheets (default: outputs)
	OutputDir string `env:"OUTPUT_DIR" default:"outputs"`

	// Retention is how long listings and history entries are kept; 0 keeps them forever (default: 720h)
	Retention time.Duration `env:"OUTPUT_RETENTION" default:"720h"`

	// SweepInterval is how often expired listings are removed (default: 1h)
	SweepInterval time.Duration `env:"OUTPUT_SWEEP_INTERVAL" default:"1h"`
}

// ConversionConfig holds upload processing settings.
type ConversionConfig struct {
	// MaxFileSize is the maximum allowed export size in bytes (default: 32MB)
	MaxFileSize int64 `env:"CONVERT_MAX_FILE_SIZE" default:"33554432"`

	// MaxConcurrent is the maximum number of parallel conversions (default: 4)
	MaxConcurrent int `env:"CONVERT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a conversion slot (default: 15s)
	MaxWaitTime time.Duration `env:"CONVERT_MAX_WAIT_TIME" default:"15s"`

	// Timeout bounds a single conversion (default: 2m)
	Timeout time.Duration `env:"CONVERT_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for conversion endpoints (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with the X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS" secret:"true"`
}

// HistoryConfig selects where conversion history is kept.
type HistoryConfig struct {
	// Driver is one of memory, sqlite, postgres (default: memory)
	Driver string `env:"HISTORY_DRIVER" default:"memory"`

	// DSN is the sqlite file path or PostgreSQL connection string
	DSN string `env:"HISTORY_DSN" envAlt:"DATABASE_URL" secret:"true"`

	// MaxConns caps the PostgreSQL pool (default: 4)
	MaxConns int `env:"HISTORY_MAX_CONNS" default:"4"`

	// ListLimit is how many entries the history page shows (default: 50)
	ListLimit int `env:"HISTORY_LIST_LIMIT" default:"50"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
