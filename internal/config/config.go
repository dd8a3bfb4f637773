// Package config provides centralized configuration management for the
// pipeline and its HTTP server. It loads configuration from environment
// variables with sensible defaults and validates all settings on startup to
// fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Pipeline PipelineConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0, a run may be long)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for read-only requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the optional PostgreSQL output settings.
// When URL is empty the cleaned tables are only written to files.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database sink is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// PipelineConfig holds the batch run settings.
type PipelineConfig struct {
	// InputDir holds customers.csv, accounts.csv and transactions.csv (default: data/raw)
	InputDir string `env:"PIPELINE_INPUT_DIR" default:"data/raw"`

	// OutputDir receives the cleaned tables and the quality report (default: data/clean)
	OutputDir string `env:"PIPELINE_OUTPUT_DIR" default:"data/clean"`

	// HighRiskThreshold is the absolute amount above which a high-risk
	// customer's transaction raises an alert (default: 50000)
	HighRiskThreshold decimal.Decimal `env:"PIPELINE_HIGH_RISK_THRESHOLD" default:"50000"`

	// OutlierThreshold is the absolute amount above which a transaction is an
	// extreme outlier (default: 100000)
	OutlierThreshold decimal.Decimal `env:"PIPELINE_OUTLIER_THRESHOLD" default:"100000"`

	// RunTimeout bounds a single run end to end (default: 10m)
	RunTimeout time.Duration `env:"PIPELINE_RUN_TIMEOUT" default:"10m"`

	// MaxWaitTime is how long a run request waits for a running one to finish (default: 0, fail at once)
	MaxWaitTime time.Duration `env:"PIPELINE_MAX_WAIT_TIME" default:"0s"`

	// WriteHTML also renders quality_report.html into OutputDir (default: true)
	WriteHTML bool `env:"PIPELINE_WRITE_HTML" default:"true"`

	// RunOnStart makes the server run the pipeline once at startup (default: false)
	RunOnStart bool `env:"PIPELINE_RUN_ON_START" default:"false"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards POST /api/runs with the X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
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
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
