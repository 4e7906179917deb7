package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "petsit"

var (
	// BookingsCreated counts accepted bookings by kind (one_time, recurring).
	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "The total number of accepted bookings",
		},
		[]string{"kind"},
	)

	SessionsMaterialized = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_materialized_total",
			Help:      "The total number of sessions created from bookings",
		},
	)

	PriceMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_mismatch_total",
			Help:      "Bookings rejected because the declared total disagreed with the expected total",
		},
	)

	// CodeRedemptions counts start/end attempts by code type and result.
	CodeRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_redemptions_total",
			Help:      "Service code redemption attempts",
		},
		[]string{"type", "result"},
	)

	Cancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Session cancellations by refund outcome",
		},
		[]string{"refund"},
	)

	RefundGatewayFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_gateway_failures_total",
			Help:      "Refund calls rejected or failed at the payment gateway",
		},
	)

	EarningsAccrued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "earnings_accrued_minor_total",
			Help:      "Sum of sitter earnings accrued, in minor units",
		},
	)

	EarningsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "earnings_released_total",
			Help:      "Ledger entries moved from pending to available",
		},
	)

	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "published_total",
			Help:      "The total number of published messages",
		},
		[]string{"topic", "result"},
	)

	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "result"},
	)

	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic"},
	)
)

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
