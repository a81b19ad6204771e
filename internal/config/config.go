// Package config defines all configuration structures for the claims-engine
// backend.  No I/O or parsing logic lives here — only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer parameters for domain events.
type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	TopicPrefix     string   `mapstructure:"topic_prefix"`
	ProducerRetries int      `mapstructure:"producer_retries"`
	BatchSize       int      `mapstructure:"batch_size"`
	TimeoutMS       int      `mapstructure:"timeout_ms"`
}

// HolidaysConfig holds the external public-holiday API parameters.
type HolidaysConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	CountryCode  string        `mapstructure:"country_code"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// CalendarConfig holds business-time calculation parameters.
type CalendarConfig struct {
	// SkipWeekends excludes Saturdays and Sundays from business time when true.
	SkipWeekends bool `mapstructure:"skip_weekends"`
}

// EscalationConfig holds the automatic internment escalation thresholds.
type EscalationConfig struct {
	// InactivityThresholdHours is the business-hour age at which an internment
	// without coverage extension becomes inactive.
	InactivityThresholdHours int `mapstructure:"inactivity_threshold_hours"`
	// PreDeadlineWindowHours is the business-hour age at which a pre-deadline
	// warning notification is emitted, up to but not including the threshold.
	PreDeadlineWindowHours int `mapstructure:"pre_deadline_window_hours"`
}

// QuotationConfig holds the medication quotation engine parameters.
type QuotationConfig struct {
	// PharmacyQuorum is the number of pharmacies invited to quote each request.
	PharmacyQuorum int `mapstructure:"pharmacy_quorum"`
	// DeadlineBusinessHours is the business-hour budget a pharmacy has to
	// submit a quotation before it expires.
	DeadlineBusinessHours int `mapstructure:"deadline_business_hours"`
	// TokenTTL bounds the calendar-time validity of public quotation tokens.
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// AuthConfig holds the bearer-token verification parameters.
type AuthConfig struct {
	// TokenSecret is the HMAC key used to sign and verify session tokens.
	TokenSecret string `mapstructure:"token_secret"`
	// TokenTTL bounds the validity of issued session tokens.
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// JobsConfig holds the scheduled-job trigger parameters.
type JobsConfig struct {
	// TriggerSecret authenticates calls to the /jobs endpoints.  Requests
	// without a matching bearer token are rejected.
	TriggerSecret string `mapstructure:"trigger_secret"`
	// BatchLimit caps the number of candidates processed per job run.
	BatchLimit int `mapstructure:"batch_limit"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the whole backend.
// Every infrastructure component and application service reads its settings
// from the relevant sub-struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Holidays   HolidaysConfig   `mapstructure:"holidays"`
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Quotation  QuotationConfig  `mapstructure:"quotation"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Log        LogConfig        `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Kafka (only validated when the producer is enabled)
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address when kafka is enabled")
	}

	// Holidays
	if c.Holidays.BaseURL == "" {
		return fmt.Errorf("config: holidays.base_url is required")
	}
	if c.Holidays.CountryCode == "" {
		return fmt.Errorf("config: holidays.country_code is required")
	}

	// Escalation
	if c.Escalation.InactivityThresholdHours < 1 {
		return fmt.Errorf("config: escalation.inactivity_threshold_hours must be ≥ 1, got %d",
			c.Escalation.InactivityThresholdHours)
	}
	if c.Escalation.PreDeadlineWindowHours < 1 ||
		c.Escalation.PreDeadlineWindowHours >= c.Escalation.InactivityThresholdHours {
		return fmt.Errorf("config: escalation.pre_deadline_window_hours %d must be in [1, %d)",
			c.Escalation.PreDeadlineWindowHours, c.Escalation.InactivityThresholdHours)
	}

	// Quotation
	if c.Quotation.PharmacyQuorum < 1 {
		return fmt.Errorf("config: quotation.pharmacy_quorum must be ≥ 1, got %d", c.Quotation.PharmacyQuorum)
	}
	if c.Quotation.DeadlineBusinessHours < 1 {
		return fmt.Errorf("config: quotation.deadline_business_hours must be ≥ 1, got %d",
			c.Quotation.DeadlineBusinessHours)
	}

	// Auth
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("config: auth.token_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("config: auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}

	// Jobs
	if c.Jobs.TriggerSecret == "" {
		return fmt.Errorf("config: jobs.trigger_secret is required")
	}
	if c.Jobs.BatchLimit < 1 {
		return fmt.Errorf("config: jobs.batch_limit must be ≥ 1, got %d", c.Jobs.BatchLimit)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
