package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "claims"
	DefaultDBMaxConns = 25

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaTopicPrefix = "claims"

	DefaultHolidaysBaseURL      = "https://date.nager.at"
	DefaultHolidaysCountryCode  = "AR"
	DefaultHolidaysFetchTimeout = 10 * time.Second
	DefaultHolidaysCacheTTL     = 24 * time.Hour

	DefaultInactivityThresholdHours = 48
	DefaultPreDeadlineWindowHours   = 24

	DefaultPharmacyQuorum        = 3
	DefaultDeadlineBusinessHours = 48
	DefaultQuotationTokenTTL     = 30 * 24 * time.Hour

	DefaultAuthTokenTTL = 8 * time.Hour

	DefaultJobsBatchLimit = 500

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the backend default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must be called
// after unmarshalling raw config data and before Validate() so that
// optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	// DB is an int; 0 is a valid explicit value so we cannot distinguish "not
	// set" from "set to 0".  We leave it as-is (0 is also the default).

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.TopicPrefix == "" {
		cfg.Kafka.TopicPrefix = DefaultKafkaTopicPrefix
	}

	// ── Holidays ──────────────────────────────────────────────────────────────
	if cfg.Holidays.BaseURL == "" {
		cfg.Holidays.BaseURL = DefaultHolidaysBaseURL
	}
	if cfg.Holidays.CountryCode == "" {
		cfg.Holidays.CountryCode = DefaultHolidaysCountryCode
	}
	if cfg.Holidays.FetchTimeout == 0 {
		cfg.Holidays.FetchTimeout = DefaultHolidaysFetchTimeout
	}
	if cfg.Holidays.CacheTTL == 0 {
		cfg.Holidays.CacheTTL = DefaultHolidaysCacheTTL
	}

	// ── Escalation ────────────────────────────────────────────────────────────
	if cfg.Escalation.InactivityThresholdHours == 0 {
		cfg.Escalation.InactivityThresholdHours = DefaultInactivityThresholdHours
	}
	if cfg.Escalation.PreDeadlineWindowHours == 0 {
		cfg.Escalation.PreDeadlineWindowHours = DefaultPreDeadlineWindowHours
	}

	// ── Quotation ─────────────────────────────────────────────────────────────
	if cfg.Quotation.PharmacyQuorum == 0 {
		cfg.Quotation.PharmacyQuorum = DefaultPharmacyQuorum
	}
	if cfg.Quotation.DeadlineBusinessHours == 0 {
		cfg.Quotation.DeadlineBusinessHours = DefaultDeadlineBusinessHours
	}
	if cfg.Quotation.TokenTTL == 0 {
		cfg.Quotation.TokenTTL = DefaultQuotationTokenTTL
	}

	// ── Auth ──────────────────────────────────────────────────────────────────
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = DefaultAuthTokenTTL
	}

	// ── Jobs ──────────────────────────────────────────────────────────────────
	if cfg.Jobs.BatchLimit == 0 {
		cfg.Jobs.BatchLimit = DefaultJobsBatchLimit
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
