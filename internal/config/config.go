// Package config loads service and CLI settings from environment variables.
// Every value has a default except the backend URL; the result is validated
// once at startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Import   ImportConfig
	Database DatabaseConfig
	Settings SettingsConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout stays 0 so progress streams are not cut off.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout applies to non-streaming API routes.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// BackendConfig points at the dataset service that receives imports.
type BackendConfig struct {
	// URL is the dataset service base URL (required)
	URL string `env:"BACKEND_URL" envAlt:"API_URL" required:"true"`

	APIKey    string        `env:"BACKEND_API_KEY" envAlt:"API_KEY"`
	ProjectID string        `env:"BACKEND_PROJECT_ID" default:"default"`
	Timeout   time.Duration `env:"BACKEND_TIMEOUT" default:"30s"`
}

// ImportConfig holds chunking, retry and concurrency settings for imports.
type ImportConfig struct {
	// MaxPayloadSize is the byte limit per uploaded chunk (default: 500 KiB)
	MaxPayloadSize int `env:"IMPORT_MAX_PAYLOAD_SIZE" default:"512000"`

	DelayBetweenChunks time.Duration `env:"IMPORT_DELAY_BETWEEN_CHUNKS" default:"100ms"`
	MaxRetries         int           `env:"IMPORT_MAX_RETRIES" default:"3"`
	InitialBackoff     time.Duration `env:"IMPORT_INITIAL_BACKOFF" default:"100ms"`

	// MaxFileSize bounds an uploaded CSV file (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	MaxConcurrent int           `env:"IMPORT_MAX_CONCURRENT" default:"4"`
	MaxWaitTime   time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// PreviewRows is how many rows the mapping step shows (default: 5)
	PreviewRows int           `env:"IMPORT_PREVIEW_ROWS" default:"5"`
	SessionTTL  time.Duration `env:"IMPORT_SESSION_TTL" default:"30m"`
}

// DatabaseConfig holds the optional import history database.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty keeps history in memory.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// SettingsConfig locates the preferences file.
type SettingsConfig struct {
	// Path is the bbolt file for UI preferences. Empty keeps them in memory.
	Path string `env:"SETTINGS_PATH" default:"dsimport.db"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for upload and import routes (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
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
