package notifications

import (
	"context"
	"time"

	"petsit/pkg/logger"
)

const dispatchTimeout = 3 * time.Second

// Dispatcher sends events after the triggering transaction has committed.
// It detaches from the request context so a client disconnect does not drop
// the event, and only logs failures.
type Dispatcher struct {
	publisher Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewDispatcher(publisher Publisher, log *logger.Logger) *Dispatcher {
	return &Dispatcher{publisher: publisher, log: log, now: time.Now}
}

func (d *Dispatcher) Notify(ctx context.Context, events ...Event) {
	if d == nil || d.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	for _, event := range events {
		if event.OccurredAt.IsZero() {
			event.OccurredAt = d.now().UTC()
		}
		if err := d.publisher.Publish(ctx, event); err != nil {
			d.log.Warn("Failed to publish event",
				"event_type", event.Type,
				"session_id", event.SessionID,
				"booking_id", event.BookingID,
				"error", err,
			)
		}
	}
}
