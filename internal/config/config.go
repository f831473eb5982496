// Package config provides configuration management for the AuthorHash
// registry. It handles loading configuration from YAML files, applying
// environment variable and command line overrides, and validating values
// for server, database, registry, anchoring, token, and logging settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Registry RegistryConfig `yaml:"registry"`
	Anchor   AnchorConfig   `yaml:"anchor"`
	Tokens   TokensConfig   `yaml:"tokens"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Payments PaymentsConfig `yaml:"payments"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled"`
	TLSCert      string        `yaml:"tls_cert"`
	TLSKey       string        `yaml:"tls_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"database"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// JWTConfig holds JWT authentication configuration for the operator surface
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Expiration time.Duration `yaml:"expiration"`
	Issuer     string        `yaml:"issuer"`
}

// RegistryConfig holds certificate reference settings
type RegistryConfig struct {
	ReferencePrefix      string `yaml:"reference_prefix"`
	MaxReferenceAttempts int    `yaml:"max_reference_attempts"`
}

// AnchorConfig holds anchoring network settings
type AnchorConfig struct {
	CalendarURL string        `yaml:"calendar_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TokensConfig holds access token settings
type TokensConfig struct {
	AccessValidity time.Duration `yaml:"access_validity"`
}

// SweepConfig holds reconciliation sweep settings. The cadence is policy,
// not contract.
type SweepConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// PaymentsConfig holds payment webhook settings
type PaymentsConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

// NotifyConfig holds notification settings
type NotifyConfig struct {
	PublicBaseURL string `yaml:"public_base_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSEnabled bool     `yaml:"cors_enabled"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Default returns the built-in configuration defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "authorhash.db",
			},
			Postgres: PostgresConfig{
				Port:         5432,
				SSLMode:      "require",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
		},
		JWT: JWTConfig{
			Expiration: 24 * time.Hour,
			Issuer:     "authorhash",
		},
		Registry: RegistryConfig{
			ReferencePrefix:      "LV-AH",
			MaxReferenceAttempts: 5,
		},
		Anchor: AnchorConfig{
			CalendarURL: "https://calendar.libris.ventures",
			Timeout:     30 * time.Second,
		},
		Tokens: TokensConfig{
			AccessValidity: 30 * time.Minute,
		},
		Sweep: SweepConfig{
			Interval: 24 * time.Hour,
		},
		Notify: NotifyConfig{
			PublicBaseURL: "https://libris.ventures",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if it exists), then environment variables, then command line flags.
// Later sources win.
func Load(path string, flags *Flags) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if flags != nil {
		if err := cfg.applyFlagOverrides(flags); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func (c *Config) applyEnvOverrides() {
	// Server overrides
	if port := os.Getenv("AUTHORHASH_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("AUTHORHASH_SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	// Database overrides
	if dbType := os.Getenv("AUTHORHASH_DB_TYPE"); dbType != "" {
		c.Database.Type = dbType
	}
	if dbPath := os.Getenv("AUTHORHASH_DB_SQLITE_PATH"); dbPath != "" {
		c.Database.SQLite.Path = dbPath
	}
	if pgHost := os.Getenv("AUTHORHASH_DB_POSTGRES_HOST"); pgHost != "" {
		c.Database.Postgres.Host = pgHost
	}
	if pgPort := os.Getenv("AUTHORHASH_DB_POSTGRES_PORT"); pgPort != "" {
		if p, err := strconv.Atoi(pgPort); err == nil {
			c.Database.Postgres.Port = p
		}
	}
	if pgDB := os.Getenv("AUTHORHASH_DB_POSTGRES_DATABASE"); pgDB != "" {
		c.Database.Postgres.Database = pgDB
	}
	if pgUser := os.Getenv("AUTHORHASH_DB_POSTGRES_USER"); pgUser != "" {
		c.Database.Postgres.User = pgUser
	}
	if pgPass := os.Getenv("AUTHORHASH_DB_POSTGRES_PASSWORD"); pgPass != "" {
		c.Database.Postgres.Password = pgPass
	}

	// Secrets
	if jwtSecret := os.Getenv("AUTHORHASH_JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}
	if whSecret := os.Getenv("AUTHORHASH_WEBHOOK_SECRET"); whSecret != "" {
		c.Payments.WebhookSecret = whSecret
	}

	// Anchor overrides
	if calURL := os.Getenv("AUTHORHASH_ANCHOR_CALENDAR_URL"); calURL != "" {
		c.Anchor.CalendarURL = calURL
	}

	// Logging overrides
	if logLevel := os.Getenv("AUTHORHASH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// applyFlagOverrides applies command line flag overrides to the configuration
func (c *Config) applyFlagOverrides(f *Flags) error {
	if v, set := f.GetServerPort(); set {
		c.Server.Port = v
	}
	if v, set := f.GetServerHost(); set {
		c.Server.Host = v
	}
	if v, set := f.GetServerReadTimeout(); set {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid server.read-timeout: %w", err)
		}
		c.Server.ReadTimeout = d
	}
	if v, set := f.GetServerWriteTimeout(); set {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid server.write-timeout: %w", err)
		}
		c.Server.WriteTimeout = d
	}
	if v, set := f.GetServerTLSEnabled(); set {
		c.Server.TLSEnabled = v
	}
	if v, set := f.GetServerTLSCert(); set {
		c.Server.TLSCert = v
	}
	if v, set := f.GetServerTLSKey(); set {
		c.Server.TLSKey = v
	}

	if v, set := f.GetDBType(); set {
		c.Database.Type = v
	}
	if v, set := f.GetDBSQLitePath(); set {
		c.Database.SQLite.Path = v
	}
	if v, set := f.GetDBPostgresHost(); set {
		c.Database.Postgres.Host = v
	}
	if v, set := f.GetDBPostgresPort(); set {
		c.Database.Postgres.Port = v
	}
	if v, set := f.GetDBPostgresDatabase(); set {
		c.Database.Postgres.Database = v
	}
	if v, set := f.GetDBPostgresUser(); set {
		c.Database.Postgres.User = v
	}
	if v, set := f.GetDBPostgresPassword(); set {
		c.Database.Postgres.Password = v
	}

	if v, set := f.GetJWTSecret(); set {
		c.JWT.Secret = v
	}
	if v, set := f.GetJWTExpiration(); set {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid jwt.expiration: %w", err)
		}
		c.JWT.Expiration = d
	}

	if v, set := f.GetRegistryPrefix(); set {
		c.Registry.ReferencePrefix = v
	}
	if v, set := f.GetRegistryMaxAttempts(); set {
		c.Registry.MaxReferenceAttempts = v
	}

	if v, set := f.GetAnchorCalendarURL(); set {
		c.Anchor.CalendarURL = v
	}
	if v, set := f.GetAnchorTimeout(); set {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid anchor.timeout: %w", err)
		}
		c.Anchor.Timeout = d
	}

	if v, set := f.GetTokensValidity(); set {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid tokens.validity: %w", err)
		}
		c.Tokens.AccessValidity = d
	}

	if v, set := f.GetSweepInterval(); set {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid sweep.interval: %w", err)
		}
		c.Sweep.Interval = d
	}

	if v, set := f.GetWebhookSecret(); set {
		c.Payments.WebhookSecret = v
	}
	if v, set := f.GetNotifyBaseURL(); set {
		c.Notify.PublicBaseURL = v
	}

	if v, set := f.GetLogLevel(); set {
		c.Logging.Level = v
	}
	if v, set := f.GetLogFormat(); set {
		c.Logging.Format = v
	}

	if v, set := f.GetSecurityCORSEnabled(); set {
		c.Security.CORSEnabled = v
	}
	if v, set := f.GetSecurityCORSOrigins(); set {
		c.Security.CORSOrigins = v
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.TLSEnabled {
		if c.Server.TLSCert == "" || c.Server.TLSKey == "" {
			return fmt.Errorf("TLS enabled but cert or key not specified")
		}
	}

	// Validate database config
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("invalid database type: %s (must be 'sqlite' or 'postgres')", c.Database.Type)
	}
	if c.Database.Type == "sqlite" && c.Database.SQLite.Path == "" {
		return fmt.Errorf("SQLite path not specified")
	}
	if c.Database.Type == "postgres" {
		if c.Database.Postgres.Host == "" || c.Database.Postgres.Database == "" {
			return fmt.Errorf("PostgreSQL host and database must be specified")
		}
	}

	// Validate registry config
	if c.Registry.ReferencePrefix == "" {
		return fmt.Errorf("registry reference prefix not specified")
	}
	if c.Registry.MaxReferenceAttempts < 1 {
		return fmt.Errorf("registry max reference attempts must be at least 1")
	}

	// Validate anchor config
	if c.Anchor.CalendarURL == "" {
		return fmt.Errorf("anchor calendar URL not specified")
	}
	if c.Anchor.Timeout <= 0 {
		return fmt.Errorf("anchor timeout must be positive")
	}

	// Validate token config
	if c.Tokens.AccessValidity <= 0 {
		return fmt.Errorf("access token validity must be positive")
	}

	// Validate sweep config
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the database connection string based on the configured type
func (c *Config) GetDSN() string {
	switch c.Database.Type {
	case "sqlite":
		return c.Database.SQLite.Path
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Postgres.Host,
			c.Database.Postgres.Port,
			c.Database.Postgres.User,
			c.Database.Postgres.Password,
			c.Database.Postgres.Database,
			c.Database.Postgres.SSLMode,
		)
	default:
		return ""
	}
}
