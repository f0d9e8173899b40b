// Package config - Application configuration management.
//
// Uses Viper for:
// - Loading from YAML files
// - Environment variables
// - Default values
//
// Priority order (highest to lowest):
// 1. Environment variables
// 2. Config file
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ============================================
// Main Configuration
// ============================================

// Config - top-level application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Lock      LockConfig      `mapstructure:"lock"`
	Events    EventsConfig    `mapstructure:"events"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ============================================
// App Configuration
// ============================================

// AppConfig - application metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	BuildTime   string `mapstructure:"build_time"`
	GitCommit   string `mapstructure:"git_commit"`
}

// IsDevelopment reports whether the environment is development.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the environment is production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ============================================
// Server Configuration
// ============================================

// ServerConfig - HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the full listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ============================================
// Database Configuration
// ============================================

// DatabaseConfig - PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// ============================================
// Lock Configuration (Redis per-key mutex)
// ============================================

// LockConfig - Redis-backed per-key mutex settings.
type LockConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Lease        time.Duration `mapstructure:"lease"`         // how long a lock is held without renewal
	AcquireWait  time.Duration `mapstructure:"acquire_wait"`  // how long to wait for a lock before Busy
	RetryBackoff time.Duration `mapstructure:"retry_backoff"` // pause between acquire attempts
}

// ============================================
// Events Configuration (NATS publisher)
// ============================================

// EventsConfig - domain event publishing over NATS.
type EventsConfig struct {
	URL            string        `mapstructure:"url"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	FlushInterval  time.Duration `mapstructure:"flush_interval"` // outbox poll period
	FlushBatchSize int           `mapstructure:"flush_batch_size"`
}

// ============================================
// Ledger Configuration
// ============================================

// LedgerConfig collects settings specific to the ledger domain logic,
// as opposed to ambient infrastructure concerns.
type LedgerConfig struct {
	ApplyStatementTimeout time.Duration `mapstructure:"apply_statement_timeout"`
	DefaultPageSize       int           `mapstructure:"default_page_size"`
	MaxPageSize           int           `mapstructure:"max_page_size"`
}

// ============================================
// Auth Configuration
// ============================================

// AuthConfig - issuer extraction settings. Unlike the original service,
// there are no roles or RBAC here: the issuer is just a string stamped
// onto every transaction created through the request.
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	JWTIssuer     string `mapstructure:"jwt_issuer"`
	HeaderName    string `mapstructure:"header_name"`    // fallback: plain header holding the issuer
	DefaultIssuer string `mapstructure:"default_issuer"` // used when neither token nor header is present
	RequireIssuer bool   `mapstructure:"require_issuer"`
}

// ============================================
// CORS Configuration
// ============================================

// CORSConfig - cross-origin request settings.
type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	ExposedHeaders   []string      `mapstructure:"exposed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// ============================================
// Rate Limit Configuration
// ============================================

// RateLimitConfig - request throttling settings.
type RateLimitConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	RequestsPerMinute  int           `mapstructure:"requests_per_minute"`
	BurstSize          int           `mapstructure:"burst_size"`
	FinancialOpsPerMin int           `mapstructure:"financial_ops_per_min"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"`
}

// ============================================
// Log Configuration
// ============================================

// LogConfig - structured logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	Output     string `mapstructure:"output"` // stdout, stderr, file
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`    // MB
	MaxBackups int    `mapstructure:"max_backups"` // number of rotated files kept
	MaxAge     int    `mapstructure:"max_age"`     // days
	Compress   bool   `mapstructure:"compress"`
}

// ============================================
// Configuration Loading
// ============================================

// Load reads configuration from a file and environment variables.
//
// configPath - directory holding the config file (e.g. "configs")
// configName - config file name without extension (e.g. "config")
//
// The file is always parsed as YAML, whatever its extension.
func Load(configPath, configName string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/creditledger")

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no file found - fall back to defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for every config key.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "creditledger")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", true)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "creditledger")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Lock defaults (Redis per-key mutex)
	v.SetDefault("lock.addr", "localhost:6379")
	v.SetDefault("lock.password", "")
	v.SetDefault("lock.db", 0)
	v.SetDefault("lock.lease", "20s")
	v.SetDefault("lock.acquire_wait", "5s")
	v.SetDefault("lock.retry_backoff", "50ms")

	// Events defaults (NATS publisher + outbox flusher)
	v.SetDefault("events.url", "nats://localhost:4222")
	v.SetDefault("events.subject_prefix", "ledger")
	v.SetDefault("events.flush_interval", "2s")
	v.SetDefault("events.flush_batch_size", 100)

	// Ledger defaults
	v.SetDefault("ledger.apply_statement_timeout", "5s")
	v.SetDefault("ledger.default_page_size", 20)
	v.SetDefault("ledger.max_page_size", 200)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.jwt_issuer", "creditledger")
	v.SetDefault("auth.header_name", "X-Issuer")
	v.SetDefault("auth.default_issuer", "unknown")
	v.SetDefault("auth.require_issuer", false)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", "12h")

	// Rate Limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 100)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.financial_ops_per_min", 30)
	v.SetDefault("rate_limit.cleanup_interval", "1m")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
}

// bindEnvVars binds well-known environment variable aliases.
func bindEnvVars(v *viper.Viper) {
	// Database (usually passed via env in production)
	_ = v.BindEnv("database.host", "LEDGER_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "LEDGER_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "LEDGER_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "LEDGER_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.database", "LEDGER_DATABASE_DATABASE", "DB_NAME")

	// Lock (Redis)
	_ = v.BindEnv("lock.addr", "LEDGER_LOCK_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("lock.password", "LEDGER_LOCK_PASSWORD", "REDIS_PASSWORD")

	// Events (NATS)
	_ = v.BindEnv("events.url", "LEDGER_EVENTS_URL", "NATS_URL")

	// Auth
	_ = v.BindEnv("auth.jwt_secret", "LEDGER_AUTH_JWT_SECRET", "JWT_SECRET")

	// Server
	_ = v.BindEnv("server.port", "LEDGER_SERVER_PORT", "PORT")

	// App
	_ = v.BindEnv("app.environment", "LEDGER_APP_ENVIRONMENT", "ENVIRONMENT", "ENV")
}

// ============================================
// Configuration Validation
// ============================================

// Validate checks the configuration for invalid or unsafe values.
func (c *Config) Validate() error {
	if c.App.IsProduction() {
		if c.Auth.JWTSecret == "change-me-in-production" {
			return fmt.Errorf("JWT secret must be changed in production")
		}

		if c.Database.SSLMode == "disable" {
			// worth a warning, not a hard failure
		}
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}

// ============================================
// Development Helpers
// ============================================

// Development returns a configuration suitable for local development.
func Development() *Config {
	return &Config{
		App: AppConfig{
			Name:        "creditledger",
			Version:     "dev",
			Environment: "development",
			Debug:       true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "postgres",
			Database:        "creditledger",
			SSLMode:         "disable",
			MaxConnections:  10,
			MinConnections:  2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Lock: LockConfig{
			Addr:         "localhost:6379",
			DB:           0,
			Lease:        20 * time.Second,
			AcquireWait:  5 * time.Second,
			RetryBackoff: 50 * time.Millisecond,
		},
		Events: EventsConfig{
			URL:            "nats://localhost:4222",
			SubjectPrefix:  "ledger",
			FlushInterval:  2 * time.Second,
			FlushBatchSize: 100,
		},
		Ledger: LedgerConfig{
			ApplyStatementTimeout: 5 * time.Second,
			DefaultPageSize:       20,
			MaxPageSize:           200,
		},
		Auth: AuthConfig{
			JWTSecret:     "dev-secret-key",
			JWTIssuer:     "creditledger-dev",
			HeaderName:    "X-Issuer",
			DefaultIssuer: "unknown",
			RequireIssuer: false,
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:            true,
			RequestsPerMinute:  100,
			BurstSize:          20,
			FinancialOpsPerMin: 30,
			CleanupInterval:    time.Minute,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Test returns a configuration suitable for automated tests.
func Test() *Config {
	cfg := Development()
	cfg.App.Environment = "test"
	cfg.Database.Database = "creditledger_test"
	cfg.Log.Level = "error" // quieter test output
	return cfg
}
