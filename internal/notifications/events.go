// Package notifications publishes session lifecycle events for downstream
// delivery. Publishing is best effort and never affects the caller's outcome.
package notifications

import (
	"context"
	"time"

	"petsit/pkg/kafka"
	kafka_middleware "petsit/pkg/kafka/middleware"
	"petsit/pkg/logger"
)

type EventType string

const (
	SessionCreated   EventType = "session.created"
	SessionStarted   EventType = "session.started"
	SessionCompleted EventType = "session.completed"
	SessionCancelled EventType = "session.cancelled"
	RefundEscalated  EventType = "refund.escalated"
)

const schemaVersion = "1"

type Event struct {
	Type           EventType      `json:"type"`
	SessionID      string         `json:"session_id,omitempty"`
	BookingID      string         `json:"booking_id,omitempty"`
	OwnerID        string         `json:"owner_id,omitempty"`
	SitterID       string         `json:"sitter_id,omitempty"`
	RefundIntentID string         `json:"refund_intent_id,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Details        map[string]any `json:"details,omitempty"`
}

// Key keeps all events of one session on one partition.
func (e Event) Key() string {
	switch {
	case e.SessionID != "":
		return e.SessionID
	case e.RefundIntentID != "":
		return e.RefundIntentID
	default:
		return e.BookingID
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type KafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string, log *logger.Logger) *KafkaPublisher {
	producer.Use(kafka_middleware.LoggingProducerMiddleware(log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware())
	return &KafkaPublisher{producer: producer, source: source}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := kafka.NewMessage().
		WithKey(event.Key()).
		WithValue(event).
		WithEventType(string(event.Type)).
		WithSchemaVersion(schemaVersion).
		WithSource(p.source).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// TopicRouter sends each event type to its own publisher, falling back to a
// default for types without a route.
type TopicRouter struct {
	fallback Publisher
	routes   map[EventType]Publisher
}

func NewTopicRouter(fallback Publisher, routes map[EventType]Publisher) *TopicRouter {
	return &TopicRouter{fallback: fallback, routes: routes}
}

func (r *TopicRouter) Publish(ctx context.Context, event Event) error {
	if p, ok := r.routes[event.Type]; ok {
		return p.Publish(ctx, event)
	}
	return r.fallback.Publish(ctx, event)
}
