package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Query     QueryConfig     `mapstructure:"query"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// LogFile, when set, receives a copy of every log line through a
	// size-rotated file writer.
	LogFile           string `mapstructure:"log_file"`
	LogFileMaxSizeMB  int    `mapstructure:"log_file_max_size_mb"  validate:"gte=0"`
	LogFileMaxBackups int    `mapstructure:"log_file_max_backups"  validate:"gte=0"`
	LogFileMaxAgeDays int    `mapstructure:"log_file_max_age_days" validate:"gte=0"`

	ReadTimeoutSeconds     int `mapstructure:"read_timeout_seconds"     validate:"gt=0"`
	WriteTimeoutSeconds    int `mapstructure:"write_timeout_seconds"    validate:"gt=0"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`

	// CORSAllowedOrigins lists the origins allowed to call the API from a browser.
	// "*" allows any origin.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" validate:"required,min=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the storage backend: "postgres" or the embedded "sqlite" document store.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	// URL is a postgres connection string or a sqlite file path / DSN.
	URL string `mapstructure:"url" validate:"required"`

	MaxOpenConns int  `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int  `mapstructure:"max_idle_conns" validate:"gte=0"`
	AutoMigrate  bool `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// RateLimitConfig bounds how often a single client IP may hit the user endpoints.
// A RequestsPerMinute of zero disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"gte=0"`
	Burst             int `mapstructure:"burst"               validate:"gte=0"`
}

// QueryConfig holds the pagination bounds applied to task listings.
type QueryConfig struct {
	DefaultLimit int `mapstructure:"default_limit" validate:"gt=0"`
	MaxLimit     int `mapstructure:"max_limit"     validate:"gtefield=DefaultLimit"`
}
