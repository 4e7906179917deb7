// Package settlement runs the background passes that move money after the
// request path has committed: earnings release, refund retries and session
// promotion.
package settlement

import (
	"context"
	"time"

	"petsit/internal/notifications"
	"petsit/pkg/kafka"
	"petsit/pkg/logger"
)

const defaultBatchSize = 200

type EarningsReleaser interface {
	ReleaseMatured(ctx context.Context, now time.Time, limit int) (int, error)
}

type RefundReconciler interface {
	Reconcile(ctx context.Context, intentID string) error
	ReconcilePending(ctx context.Context, limit int) (int, error)
}

type SessionPromoter interface {
	PromoteUpcoming(ctx context.Context, now time.Time) (int64, error)
}

type Result struct {
	Promoted int64
	Released int
	Refunded int
}

type Sweeper struct {
	earnings  EarningsReleaser
	refunds   RefundReconciler
	sessions  SessionPromoter
	interval  time.Duration
	batchSize int
	log       *logger.Logger
	now       func() time.Time
}

func NewSweeper(earnings EarningsReleaser, refunds RefundReconciler, sessions SessionPromoter, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		earnings:  earnings,
		refunds:   refunds,
		sessions:  sessions,
		interval:  interval,
		batchSize: defaultBatchSize,
		log:       log,
		now:       time.Now,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Sweep(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("Settlement sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs every pass once. A failing pass is logged and does not stop the
// others.
func (s *Sweeper) Sweep(ctx context.Context) Result {
	now := s.now().UTC()
	var result Result

	promoted, err := s.sessions.PromoteUpcoming(ctx, now)
	if err != nil {
		s.log.Error("Failed to promote upcoming sessions", "error", err)
	}
	result.Promoted = promoted

	released, err := s.earnings.ReleaseMatured(ctx, now, s.batchSize)
	if err != nil {
		s.log.Error("Failed to release matured earnings", "error", err)
	}
	result.Released = released

	refunded, err := s.refunds.ReconcilePending(ctx, s.batchSize)
	if err != nil {
		s.log.Error("Failed to reconcile pending refunds", "error", err)
	}
	result.Refunded = refunded

	s.log.Info("Settlement sweep finished",
		"promoted", result.Promoted,
		"released", result.Released,
		"refunded", result.Refunded,
	)
	return result
}

// EscalationHandler reconciles the refund intent named by a refund.escalated
// event. Other event types are acknowledged without work.
func EscalationHandler(refunds RefundReconciler, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event notifications.Event
		if err := msg.DecodeValue(&event); err != nil {
			log.Error("Dropping undecodable escalation", "event_id", msg.GetEventID(), "error", err)
			return nil
		}
		if event.Type != notifications.RefundEscalated || event.RefundIntentID == "" {
			return nil
		}
		return refunds.Reconcile(ctx, event.RefundIntentID)
	}
}
