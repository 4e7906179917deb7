package main

import (
	"context"
	"errors"

	"petsit/internal/settlement"
	"petsit/internal/wiring"
	"petsit/pkg/app"
	"petsit/pkg/config"
	"petsit/pkg/kafka"
	kafka_config "petsit/pkg/kafka/config"
	kafka_middleware "petsit/pkg/kafka/middleware"
)

const ServiceName = "settlement-worker"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Settlement worker")
	serverApp := app.NewApplication(cfg)

	dispatcher, closeProducers := wiring.Dispatcher(cfg, ServiceName)
	st := wiring.NewSettlement(cfg, dispatcher)
	sessionService := wiring.SessionService(cfg, st, wiring.CodeIssuer(cfg), dispatcher)

	ctx, cancel := context.WithCancel(context.Background())

	sweeper := settlement.NewSweeper(st.Earnings, st.RefundIssuer, sessionService, cfg.SweepInterval, cfg.Log)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()

	consumer := startEscalationConsumer(ctx, cfg, st)

	serverApp.OnShutdown(func() {
		cancel()
		<-sweepDone
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				cfg.Log.Error("Failed to close escalation consumer", "error", err)
			}
		}
		closeProducers()
	})

	serverApp.SetApp()
	serverApp.Run()
}

// startEscalationConsumer returns nil when Kafka is not configured; the sweep
// still retries pending refunds on its own schedule.
func startEscalationConsumer(ctx context.Context, cfg *config.Config, st *wiring.Settlement) *kafka.Consumer {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Warn("Kafka disabled, escalations are handled by the sweep only", "error", err)
		return nil
	}

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.RefundEscalationsTopic,
		cfg.SettlementGroupID,
		settlement.EscalationHandler(st.RefundIssuer, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create escalation consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Escalation consumer stopped", "error", err)
		}
	}()
	return consumer
}
