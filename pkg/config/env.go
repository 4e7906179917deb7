package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvCodeAttemptsPerMinute = "CODE_ATTEMPTS_PER_MINUTE"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultTimeZone          = "DEFAULT_TIME_ZONE"
	EnvMaxBookingSpanDays       = "MAX_BOOKING_SPAN_DAYS"
	EnvCodeValidityAfterSession = "CODE_VALIDITY_AFTER_SESSION"
	EnvCodeSealKey              = "CODE_SEAL_KEY"

	EnvRefundDeductionPercent = "REFUND_DEDUCTION_PERCENT"
	EnvRefundMaxAttempts      = "REFUND_MAX_ATTEMPTS"
	EnvStripeSecretKey        = "STRIPE_SECRET_KEY"

	EnvEarningsHoldPeriod = "EARNINGS_HOLD_PERIOD"
	EnvSweepInterval      = "SWEEP_INTERVAL"
	EnvUpcomingWindow     = "UPCOMING_WINDOW"

	EnvSessionEventsTopic     = "KAFKA_SESSION_EVENTS_TOPIC"
	EnvRefundEscalationsTopic = "KAFKA_REFUND_ESCALATIONS_TOPIC"
	EnvSettlementGroupID      = "KAFKA_SETTLEMENT_GROUP_ID"
)
