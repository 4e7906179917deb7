package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "petsit"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultCodeAttemptsPerMinute = 5

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultDefaultTimeZone          = "Asia/Kolkata"
	DefaultMaxBookingSpanDays       = 366
	DefaultCodeValidityAfterSession = 24 * time.Hour

	DefaultRefundDeductionPercent = "10"
	DefaultRefundMaxAttempts      = 5

	DefaultEarningsHoldPeriod = 72 * time.Hour
	DefaultSweepInterval      = 15 * time.Minute
	DefaultUpcomingWindow     = 24 * time.Hour

	DefaultSessionEventsTopic     = "petsit.session-events"
	DefaultRefundEscalationsTopic = "petsit.refund-escalations"
	DefaultSettlementGroupID      = "petsit-settlement-worker"

	DefaultPaginationLimit = 100

	RefundProcessingTime = "5-7 business days"
)
