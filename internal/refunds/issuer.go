package refunds

import (
	"context"
	"errors"
	"time"

	"petsit/internal/notifications"
	"petsit/internal/refunds/repository"
	apperrors "petsit/pkg/errors"
	"petsit/pkg/logger"
	"petsit/pkg/metrics"
	"petsit/pkg/model"
	"petsit/pkg/money"
)

// SessionPayments is the part of the session store a settled refund touches.
type SessionPayments interface {
	MarkRefunded(ctx context.Context, sessionID string) error
}

// Issuer sends committed refund intents to the gateway. It is always called
// outside any database transaction.
type Issuer struct {
	repo        repository.RefundRepository
	gateway     Gateway
	payments    SessionPayments
	dispatcher  *notifications.Dispatcher
	maxAttempts int
	log         *logger.Logger
}

func NewIssuer(
	repo repository.RefundRepository,
	gateway Gateway,
	payments SessionPayments,
	dispatcher *notifications.Dispatcher,
	maxAttempts int,
	log *logger.Logger,
) *Issuer {
	return &Issuer{
		repo:        repo,
		gateway:     gateway,
		payments:    payments,
		dispatcher:  dispatcher,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Issue makes the first gateway attempt for a freshly committed intent. A
// gateway failure is recorded and escalated, never returned.
func (i *Issuer) Issue(ctx context.Context, intent *model.RefundIntent) (*model.RefundIntent, bool) {
	updated, err := i.attempt(ctx, intent)
	if err == nil {
		return updated, false
	}

	i.escalate(ctx, updated, err)
	return updated, true
}

// Reconcile retries an unsettled intent. It returns an error while attempts
// remain so the caller can retry later.
func (i *Issuer) Reconcile(ctx context.Context, intentID string) error {
	intent, err := i.repo.FindByID(ctx, intentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			i.log.Warn("Refund intent to reconcile does not exist", "refund_intent_id", intentID)
			return nil
		}
		return err
	}

	if intent.Status == model.RefundStatusInitiated {
		return nil
	}
	if intent.Attempts >= i.maxAttempts {
		i.log.Error("Refund exhausted gateway attempts, manual processing required",
			"refund_intent_id", intent.ID,
			"session_id", intent.SessionID,
			"attempts", intent.Attempts,
			"last_error", intent.LastError,
		)
		return nil
	}

	updated, err := i.attempt(ctx, intent)
	if err == nil {
		i.log.Info("Refund reconciled", "refund_intent_id", intent.ID, "attempts", updated.Attempts)
		return nil
	}

	if updated.Attempts >= i.maxAttempts {
		i.log.Error("Refund exhausted gateway attempts, manual processing required",
			"refund_intent_id", intent.ID,
			"session_id", intent.SessionID,
			"attempts", updated.Attempts,
			"error", err,
		)
		return nil
	}
	return err
}

// ReconcilePending retries up to limit unsettled intents and reports how
// many settled.
func (i *Issuer) ReconcilePending(ctx context.Context, limit int) (int, error) {
	intents, err := i.repo.FindRetryable(ctx, i.maxAttempts, limit)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, intent := range intents {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		if _, err := i.attempt(ctx, intent); err != nil {
			i.log.Warn("Refund retry failed", "refund_intent_id", intent.ID, "error", err)
			continue
		}
		settled++
	}
	return settled, nil
}

// attempt calls the gateway once. The returned intent reflects the stored
// state after the attempt, even when err is non-nil.
func (i *Issuer) attempt(ctx context.Context, intent *model.RefundIntent) (*model.RefundIntent, error) {
	refundID, gwErr := i.gateway.CreateRefund(ctx, RefundRequest{
		PaymentRef:     intent.PaymentRef,
		Amount:         intent.RefundAmount,
		IdempotencyKey: intent.ID,
		Notes: map[string]string{
			"refund_intent_id": intent.ID,
			"session_id":       intent.SessionID,
			"booking_id":       intent.BookingID,
		},
	})

	if gwErr != nil {
		metrics.RefundGatewayFailures.Inc()
		updated, err := i.repo.RecordFailure(ctx, intent.ID, gwErr.Error())
		if errors.Is(err, repository.ErrAlreadySettled) {
			return i.settledElsewhere(ctx, intent)
		}
		if err != nil {
			i.log.Error("Failed to record refund failure", "refund_intent_id", intent.ID, "error", err)
			failed := *intent
			failed.Attempts++
			failed.LastError = gwErr.Error()
			return &failed, gwErr
		}
		return updated, gwErr
	}

	updated, err := i.repo.MarkInitiated(ctx, intent.ID, refundID)
	if errors.Is(err, repository.ErrAlreadySettled) {
		return i.settledElsewhere(ctx, intent)
	}
	if err != nil {
		// The gateway accepted the refund; the idempotency key makes the next
		// attempt return the same refund id.
		i.log.Error("Failed to store gateway refund id",
			"refund_intent_id", intent.ID,
			"gateway_refund_id", refundID,
			"error", err,
		)
		return intent, err
	}

	if err := i.payments.MarkRefunded(ctx, intent.SessionID); err != nil {
		i.log.Error("Failed to mark session refunded",
			"refund_intent_id", intent.ID,
			"session_id", intent.SessionID,
			"error", err,
		)
	}

	i.log.Info("Refund initiated",
		"refund_intent_id", intent.ID,
		"session_id", intent.SessionID,
		"gateway_refund_id", refundID,
		"refund_amount", money.Format(intent.RefundAmount),
	)
	return updated, nil
}

// settledElsewhere handles an intent that a concurrent attempt already
// moved out of FAILED_PENDING_MANUAL.
func (i *Issuer) settledElsewhere(ctx context.Context, intent *model.RefundIntent) (*model.RefundIntent, error) {
	current, err := i.repo.FindByID(ctx, intent.ID)
	if err != nil {
		return intent, err
	}
	return current, nil
}

func (i *Issuer) escalate(ctx context.Context, intent *model.RefundIntent, cause error) {
	i.log.Warn("Refund escalated for manual follow-up",
		"refund_intent_id", intent.ID,
		"session_id", intent.SessionID,
		"attempts", intent.Attempts,
		"error", cause,
	)

	gatewayErr := apperrors.RefundGateway(cause)
	i.dispatcher.Notify(ctx, notifications.Event{
		Type:           notifications.RefundEscalated,
		SessionID:      intent.SessionID,
		BookingID:      intent.BookingID,
		RefundIntentID: intent.ID,
		OccurredAt:     time.Now().UTC(),
		Details: map[string]any{
			"refund_amount_minor": intent.RefundAmount,
			"attempts":            intent.Attempts,
			"error_code":          gatewayErr.Code,
			"error":               cause.Error(),
		},
	})
}
