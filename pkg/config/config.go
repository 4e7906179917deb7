package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"petsit/pkg/client"
	"petsit/pkg/logger"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests     int
	RateLimitWindow       time.Duration
	CodeAttemptsPerMinute int

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	DefaultTimeZone          string
	MaxBookingSpanDays       int
	CodeValidityAfterSession time.Duration
	CodeSealKey              string

	RefundDeductionPercent decimal.Decimal
	RefundMaxAttempts      int
	StripeSecretKey        string

	EarningsHoldPeriod time.Duration
	SweepInterval      time.Duration
	UpcomingWindow     time.Duration

	SessionEventsTopic     string
	RefundEscalationsTopic string
	SettlementGroupID      string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests:     getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:       getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		CodeAttemptsPerMinute: getEnvNum(EnvCodeAttemptsPerMinute, DefaultCodeAttemptsPerMinute),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		DefaultTimeZone:          getEnvStr(EnvDefaultTimeZone, DefaultDefaultTimeZone),
		MaxBookingSpanDays:       getEnvNum(EnvMaxBookingSpanDays, DefaultMaxBookingSpanDays),
		CodeValidityAfterSession: getEnvDuration(EnvCodeValidityAfterSession, DefaultCodeValidityAfterSession),
		CodeSealKey:              getEnvStr(EnvCodeSealKey, ""),

		RefundDeductionPercent: getEnvDecimal(EnvRefundDeductionPercent, DefaultRefundDeductionPercent),
		RefundMaxAttempts:      getEnvNum(EnvRefundMaxAttempts, DefaultRefundMaxAttempts),
		StripeSecretKey:        getEnvStr(EnvStripeSecretKey, ""),

		EarningsHoldPeriod: getEnvDuration(EnvEarningsHoldPeriod, DefaultEarningsHoldPeriod),
		SweepInterval:      getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		UpcomingWindow:     getEnvDuration(EnvUpcomingWindow, DefaultUpcomingWindow),

		SessionEventsTopic:     getEnvStr(EnvSessionEventsTopic, DefaultSessionEventsTopic),
		RefundEscalationsTopic: getEnvStr(EnvRefundEscalationsTopic, DefaultRefundEscalationsTopic),
		SettlementGroupID:      getEnvStr(EnvSettlementGroupID, DefaultSettlementGroupID),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"CodeValidityAfterSession", cfg.CodeValidityAfterSession},
		{"EarningsHoldPeriod", cfg.EarningsHoldPeriod},
		{"SweepInterval", cfg.SweepInterval},
		{"UpcomingWindow", cfg.UpcomingWindow},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.CodeAttemptsPerMinute <= 0 {
		errors = append(errors, fmt.Sprintf("CodeAttemptsPerMinute must be positive, got: %d", cfg.CodeAttemptsPerMinute))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.MaxBookingSpanDays <= 0 {
		errors = append(errors, fmt.Sprintf("MaxBookingSpanDays must be positive, got: %d", cfg.MaxBookingSpanDays))
	}
	if cfg.RefundMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("RefundMaxAttempts must be positive, got: %d", cfg.RefundMaxAttempts))
	}

	if cfg.RefundDeductionPercent.IsNegative() || cfg.RefundDeductionPercent.GreaterThan(decimal.NewFromInt(100)) {
		errors = append(errors, fmt.Sprintf("RefundDeductionPercent must be between 0 and 100, got: %s", cfg.RefundDeductionPercent))
	}

	if _, err := time.LoadLocation(cfg.DefaultTimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("DefaultTimeZone must be an IANA time zone, got: %s", cfg.DefaultTimeZone))
	}

	if cfg.CodeSealKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.CodeSealKey)
		if err != nil || len(key) != 32 {
			errors = append(errors, "CodeSealKey must be a base64 encoded 32 byte key")
		}
	}

	if cfg.SessionEventsTopic == "" || cfg.RefundEscalationsTopic == "" {
		errors = append(errors, "Kafka topics cannot be empty")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"code_attempts_per_minute", cfg.CodeAttemptsPerMinute,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"default_time_zone", cfg.DefaultTimeZone,
		"max_booking_span_days", cfg.MaxBookingSpanDays,
		"code_validity_after_session", cfg.CodeValidityAfterSession,
		"code_seal_key_set", cfg.CodeSealKey != "",
		"refund_deduction_percent", cfg.RefundDeductionPercent.String(),
		"refund_max_attempts", cfg.RefundMaxAttempts,
		"stripe_key_set", cfg.StripeSecretKey != "",
		"earnings_hold_period", cfg.EarningsHoldPeriod,
		"sweep_interval", cfg.SweepInterval,
		"upcoming_window", cfg.UpcomingWindow,
		"session_events_topic", cfg.SessionEventsTopic,
		"refund_escalations_topic", cfg.RefundEscalationsTopic,
		"settlement_group_id", cfg.SettlementGroupID,
	)
}

// Location returns the default booking time zone. Validate guarantees it loads.
func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(fallback)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
