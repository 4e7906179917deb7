package kafka_middleware

import (
	"context"
	"time"

	"petsit/pkg/kafka"
	"petsit/pkg/metrics"
)

func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)
		metrics.MessagesPublished.WithLabelValues(msg.Topic, metrics.Result(err)).Inc()
		return err
	}
}

func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		metrics.MessagesProcessingDuration.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
		metrics.MessagesProcessed.WithLabelValues(msg.Topic, metrics.Result(err)).Inc()
		return err
	}
}
