// Package wiring assembles the shared service graph used by the binaries.
package wiring

import (
	"petsit/internal/earnings/repository"
	earnings "petsit/internal/earnings/service"
	"petsit/internal/notifications"
	"petsit/internal/refunds"
	"petsit/internal/refunds/gateway"
	refundsrepo "petsit/internal/refunds/repository"
	"petsit/internal/sessions/codes"
	sessionsrepo "petsit/internal/sessions/repository"
	sessions "petsit/internal/sessions/service"
	"petsit/internal/sessions/validator"
	"petsit/internal/settings"
	"petsit/pkg/config"
	"petsit/pkg/kafka"
	kafka_config "petsit/pkg/kafka/config"
	"petsit/pkg/sealer"
)

// Dispatcher publishes session events to the session topic and refund
// escalations to their own topic. Without Kafka it still returns a usable
// dispatcher that drops events. The returned func closes the producers.
func Dispatcher(cfg *config.Config, source string) (*notifications.Dispatcher, func()) {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Warn("Kafka disabled, events will not be published", "error", err)
		return notifications.NewDispatcher(nil, cfg.Log), func() {}
	}

	sessionProducer, err := kafka.NewProducer(kafkaCfg, cfg.SessionEventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create session events producer", "error", err)
	}
	escalationProducer, err := kafka.NewProducer(kafkaCfg, cfg.RefundEscalationsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create refund escalations producer", "error", err)
	}

	router := notifications.NewTopicRouter(
		notifications.NewKafkaPublisher(sessionProducer, source, cfg.Log),
		map[notifications.EventType]notifications.Publisher{
			notifications.RefundEscalated: notifications.NewKafkaPublisher(escalationProducer, source, cfg.Log),
		},
	)

	closeAll := func() {
		for _, p := range []*kafka.Producer{sessionProducer, escalationProducer} {
			if err := p.Close(); err != nil {
				cfg.Log.Error("Failed to close producer", "topic", p.Topic(), "error", err)
			}
		}
	}
	return notifications.NewDispatcher(router, cfg.Log), closeAll
}

// CodeIssuer fails hard without a seal key: codes must never be stored in
// the clear.
func CodeIssuer(cfg *config.Config) *codes.Issuer {
	if cfg.CodeSealKey == "" {
		cfg.Log.Fatal("CODE_SEAL_KEY is required")
	}
	s, err := sealer.New(cfg.CodeSealKey)
	if err != nil {
		cfg.Log.Fatal("Invalid code seal key", "error", err)
	}
	return codes.NewIssuer(s, cfg.CodeValidityAfterSession)
}

// Settlement is the money-moving half of the graph shared by the session API
// and the settlement worker.
type Settlement struct {
	SessionRepo  sessionsrepo.SessionRepository
	CodeRepo     sessionsrepo.CodeRepository
	Earnings     earnings.EarningsService
	RefundIssuer *refunds.Issuer
}

func NewSettlement(cfg *config.Config, dispatcher *notifications.Dispatcher) *Settlement {
	sessionRepo := sessionsrepo.NewMongoSessionRepository(cfg)
	refundIssuer := refunds.NewIssuer(
		refundsrepo.NewMongoRefundRepository(cfg),
		gateway.New(cfg.StripeSecretKey),
		sessionRepo,
		dispatcher,
		cfg.RefundMaxAttempts,
		cfg.Log,
	)

	return &Settlement{
		SessionRepo: sessionRepo,
		CodeRepo:    sessionsrepo.NewMongoCodeRepository(cfg),
		Earnings: earnings.NewEarningsService(
			repository.NewMongoWalletRepository(cfg),
			repository.NewMongoLedgerRepository(cfg),
			cfg,
		),
		RefundIssuer: refundIssuer,
	}
}

// SessionService builds the session lifecycle service on top of st.
func SessionService(cfg *config.Config, st *Settlement, codeIssuer *codes.Issuer, dispatcher *notifications.Dispatcher) sessions.SessionService {
	return sessions.NewSessionService(sessions.Dependencies{
		Sessions:     st.SessionRepo,
		Codes:        st.CodeRepo,
		CodeIssuer:   codeIssuer,
		Validator:    validator.NewSessionValidator(cfg.Log),
		Earnings:     st.Earnings,
		Refunds:      refundsrepo.NewMongoRefundRepository(cfg),
		RefundIssuer: st.RefundIssuer,
		RefundPolicy: settings.NewMongoRefundPolicy(cfg),
		Dispatcher:   dispatcher,
	}, cfg)
}
