package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	earnings "petsit/internal/earnings/service"
	"petsit/internal/notifications"
	"petsit/internal/refunds"
	refundsrepo "petsit/internal/refunds/repository"
	"petsit/internal/sessions/codes"
	sessionserrors "petsit/internal/sessions/errors"
	"petsit/internal/sessions/lifecycle"
	"petsit/internal/sessions/repository"
	"petsit/internal/sessions/validator"
	"petsit/internal/settings"
	"petsit/pkg/config"
	apperrors "petsit/pkg/errors"
	"petsit/pkg/metrics"
	"petsit/pkg/model"
	"petsit/pkg/money"

	"github.com/google/uuid"
)

type SessionService interface {
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Session, error)
	ListByBooking(ctx context.Context, actor model.Actor, bookingID string, limit int, offset int64) ([]*model.Session, int64, error)
	GetCodes(ctx context.Context, actor model.Actor, id string) ([]*model.ServiceCode, error)

	Assign(ctx context.Context, actor model.Actor, id string, req *model.SitterAssignment) (*model.Session, error)
	Confirm(ctx context.Context, actor model.Actor, id string) (*model.Session, error)
	Start(ctx context.Context, actor model.Actor, id string, req *model.CodeRedemption) (*model.Session, error)
	End(ctx context.Context, actor model.Actor, id string, req *model.CodeRedemption) (*model.Session, error)
	Cancel(ctx context.Context, actor model.Actor, id string, req *model.CancelRequest) (*model.CancelResult, error)
	RecordPayment(ctx context.Context, actor model.Actor, id string, req *model.PaymentRecord) (*model.Session, error)

	PromoteUpcoming(ctx context.Context, now time.Time) (int64, error)
}

// RefundIssuer sends a committed refund intent to the payment gateway.
type RefundIssuer interface {
	Issue(ctx context.Context, intent *model.RefundIntent) (*model.RefundIntent, bool)
}

type Dependencies struct {
	Sessions     repository.SessionRepository
	Codes        repository.CodeRepository
	CodeIssuer   *codes.Issuer
	Validator    *validator.SessionValidator
	Earnings     earnings.EarningsService
	Refunds      refundsrepo.RefundRepository
	RefundIssuer RefundIssuer
	RefundPolicy settings.RefundPolicy
	Dispatcher   *notifications.Dispatcher
}

type sessionService struct {
	sessions     repository.SessionRepository
	codes        repository.CodeRepository
	codeIssuer   *codes.Issuer
	validator    *validator.SessionValidator
	earnings     earnings.EarningsService
	refunds      refundsrepo.RefundRepository
	refundIssuer RefundIssuer
	refundPolicy settings.RefundPolicy
	dispatcher   *notifications.Dispatcher
	cfg          *config.Config
	now          func() time.Time
}

func NewSessionService(deps Dependencies, cfg *config.Config) SessionService {
	return &sessionService{
		sessions:     deps.Sessions,
		codes:        deps.Codes,
		codeIssuer:   deps.CodeIssuer,
		validator:    deps.Validator,
		earnings:     deps.Earnings,
		refunds:      deps.Refunds,
		refundIssuer: deps.RefundIssuer,
		refundPolicy: deps.RefundPolicy,
		dispatcher:   deps.Dispatcher,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *sessionService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && !isOwner(actor, session) && !isAssignedSitter(actor, session) {
		return nil, apperrors.Forbidden("Session belongs to another account")
	}
	return session, nil
}

func (s *sessionService) ListByBooking(ctx context.Context, actor model.Actor, bookingID string, limit int, offset int64) ([]*model.Session, int64, error) {
	if bookingID == "" {
		return nil, 0, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	filter := repository.Filter{BookingID: bookingID}
	switch actor.Role {
	case model.RoleOwner:
		filter.OwnerID = actor.ID
	case model.RoleSitter:
		filter.SitterID = actor.ID
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	sessions, err := s.sessions.Find(ctx, filter, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list sessions", "booking_id", bookingID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve sessions", err)
	}

	count, err := s.sessions.Count(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to count sessions", "booking_id", bookingID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve sessions", err)
	}

	return sessions, count, nil
}

// GetCodes reveals the plaintext codes to the session owner, who hands them
// to the sitter at the door.
func (s *sessionService) GetCodes(ctx context.Context, actor model.Actor, id string) ([]*model.ServiceCode, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isOwner(actor, session) {
		return nil, apperrors.Forbidden("Only the session owner can view service codes")
	}

	serviceCodes, err := s.codes.FindBySession(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to load service codes", "session_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve service codes", err)
	}

	for _, code := range serviceCodes {
		if err := s.codeIssuer.Reveal(code); err != nil {
			s.cfg.Log.Error("Failed to open service code",
				"session_id", id,
				"code_type", code.Type,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to retrieve service codes", err)
		}
	}
	return serviceCodes, nil
}

func (s *sessionService) Assign(ctx context.Context, actor model.Actor, id string, req *model.SitterAssignment) (*model.Session, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only an administrator can assign sitters")
	}
	if err := s.validator.ValidateAssignment(req); err != nil {
		return nil, validationError(err)
	}

	return s.transition(ctx, id, repository.StatusChange{
		From:     []string{model.SessionStatusPending},
		To:       model.SessionStatusAssigned,
		SitterID: req.SitterID,
	}, nil)
}

func (s *sessionService) Confirm(ctx context.Context, actor model.Actor, id string) (*model.Session, error) {
	return s.transition(ctx, id, repository.StatusChange{
		From: []string{model.SessionStatusAssigned},
		To:   model.SessionStatusConfirmed,
	}, func(session *model.Session) error {
		if !actor.IsAdmin() && !isAssignedSitter(actor, session) {
			return apperrors.Forbidden("Only the assigned sitter can confirm this session")
		}
		return nil
	})
}

// transition applies a simple status change after an optional access check.
func (s *sessionService) transition(ctx context.Context, id string, change repository.StatusChange, authorize func(*model.Session) error) (*model.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if authorize != nil {
		if err := authorize(session); err != nil {
			return nil, err
		}
	}
	if err := lifecycle.CheckTransition(session.Status, change.To); err != nil {
		return nil, s.translate(err, id, "Failed to update session")
	}

	change.At = s.now().UTC()
	updated, err := s.sessions.TransitionStatus(ctx, id, change)
	if err != nil {
		if errors.Is(err, sessionserrors.ErrStatusChanged) {
			return nil, apperrors.Conflict("Session status changed, reload and retry")
		}
		s.cfg.Log.Error("Failed to update session status", "session_id", id, "to", change.To, "error", err)
		return nil, apperrors.Internal("Failed to update session", err)
	}

	s.cfg.Log.Info("Session status updated",
		"session_id", id,
		"from", session.Status,
		"to", updated.Status,
	)
	return updated, nil
}

func (s *sessionService) Start(ctx context.Context, actor model.Actor, id string, req *model.CodeRedemption) (*model.Session, error) {
	session, err := s.redeem(ctx, actor, id, model.CodeTypeStart, req)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Notify(ctx, sessionEvent(notifications.SessionStarted, session))
	return session, nil
}

func (s *sessionService) End(ctx context.Context, actor model.Actor, id string, req *model.CodeRedemption) (*model.Session, error) {
	session, err := s.redeem(ctx, actor, id, model.CodeTypeEnd, req)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Notify(ctx, sessionEvent(notifications.SessionCompleted, session))
	return session, nil
}

// redeem consumes a START or END code. The code CAS, the status update and,
// for END, the earnings accrual commit together or not at all.
func (s *sessionService) redeem(ctx context.Context, actor model.Actor, id, codeType string, req *model.CodeRedemption) (*model.Session, error) {
	if err := s.validator.ValidateRedemption(req); err != nil {
		return nil, validationError(err)
	}

	var updated *model.Session
	err := s.sessions.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		session, err := s.sessions.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !isAssignedSitter(actor, session) {
			return apperrors.Forbidden("Only the assigned sitter can redeem service codes")
		}

		code, err := s.codes.FindBySessionAndType(txCtx, id, codeType)
		if err != nil && !errors.Is(err, sessionserrors.ErrCodeNotFound) {
			return err
		}

		now := s.now().UTC()
		if err := lifecycle.CheckRedemption(session, code, codeType, now); err != nil {
			return err
		}
		if err := s.codeIssuer.Verify(code, req.Code); err != nil {
			return err
		}
		if err := s.codes.MarkUsed(txCtx, code.ID, now); err != nil {
			if errors.Is(err, sessionserrors.ErrCodeAlreadyUsed) {
				return sessionserrors.Code(sessionserrors.ReasonCodeUsed)
			}
			return err
		}

		change := repository.StatusChange{At: now}
		switch codeType {
		case model.CodeTypeStart:
			change.From = lifecycle.StartableStatuses
			change.To = model.SessionStatusOngoing
			change.StartedAt = &now
		case model.CodeTypeEnd:
			change.From = []string{model.SessionStatusOngoing}
			change.To = model.SessionStatusCompleted
			change.CompletedAt = &now
			if session.Recurring && session.ServiceStartedAt != nil {
				minutes := lifecycle.DurationMinutes(*session.ServiceStartedAt, now)
				change.DurationMin = &minutes
			}
		}

		updated, err = s.sessions.TransitionStatus(txCtx, id, change)
		if err != nil {
			if errors.Is(err, sessionserrors.ErrStatusChanged) {
				if codeType == model.CodeTypeStart {
					return sessionserrors.Code(sessionserrors.ReasonSessionNotReady)
				}
				return sessionserrors.Code(sessionserrors.ReasonSessionNotActive)
			}
			return err
		}

		if codeType == model.CodeTypeEnd {
			if _, err := s.earnings.Accrue(txCtx, updated, now); err != nil {
				return fmt.Errorf("failed to accrue earnings: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		metrics.CodeRedemptions.WithLabelValues(codeType, "rejected").Inc()

		var codeErr *sessionserrors.CodeError
		if errors.As(err, &codeErr) {
			s.cfg.Log.Warn("Service code rejected",
				"session_id", id,
				"code_type", codeType,
				"actor_id", actor.ID,
				"reason", codeErr.Reason,
			)
			return nil, apperrors.InvalidOrExpiredCode(codeErr.Reason)
		}
		return nil, s.translate(err, id, "Failed to redeem service code")
	}

	metrics.CodeRedemptions.WithLabelValues(codeType, "accepted").Inc()
	s.cfg.Log.Info("Service code redeemed",
		"session_id", id,
		"code_type", codeType,
		"status", updated.Status,
		"sitter_id", updated.SitterID,
	)
	return updated, nil
}

// Cancel commits the status change and, for paid sessions, a pessimistic
// FAILED_PENDING_MANUAL refund intent. The gateway is called afterwards; its
// failure escalates the refund but never fails the cancellation.
func (s *sessionService) Cancel(ctx context.Context, actor model.Actor, id string, req *model.CancelRequest) (*model.CancelResult, error) {
	if err := s.validator.ValidateCancel(req); err != nil {
		return nil, validationError(err)
	}

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isOwner(actor, session) {
		return nil, apperrors.Forbidden("Only the session owner can cancel this session")
	}
	if err := lifecycle.CheckCancel(session); err != nil {
		return nil, apperrors.NotCancellable("Session cannot be cancelled in its current state", session.Status)
	}

	now := s.now().UTC()
	target := model.SessionStatusUserCancelled
	if actor.IsAdmin() {
		target = model.SessionStatusCancelled
	}

	var (
		current   *model.Session
		updated   *model.Session
		intent    *model.RefundIntent
		breakdown refunds.Breakdown
		paid      bool
	)
	err = s.sessions.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		var err error
		current, err = s.sessions.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		paid = current.PaymentStatus == model.PaymentStatusPaid
		breakdown = refunds.Breakdown{}
		if paid {
			if breakdown, err = s.refundBreakdown(ctx, current); err != nil {
				return err
			}
		}

		updated, err = s.sessions.TransitionStatus(txCtx, id, repository.StatusChange{
			From:          lifecycle.CancellableStatuses,
			To:            target,
			At:            now,
			PaymentStatus: current.PaymentStatus,
			CancelReason:  req.Reason,
			CancelledBy:   actor.ID,
		})
		if err != nil {
			return err
		}

		if !paid || breakdown.Refund == 0 {
			return nil
		}

		intent = newRefundIntent(current, breakdown, req.Reason, now)
		return s.refunds.Create(txCtx, intent)
	})

	if err != nil {
		if errors.Is(err, sessionserrors.ErrStatusChanged) {
			return nil, s.cancelConflict(ctx, id)
		}
		return nil, s.translate(err, id, "Failed to cancel session")
	}
	result := &model.CancelResult{Session: updated}
	if paid {
		result.Refund = &model.RefundInfo{
			RefundAmount:     breakdown.Refund,
			DeductionAmount:  breakdown.Deduction,
			DeductionPercent: breakdown.DeductionPercent.String(),
			ProcessingTime:   config.RefundProcessingTime,
		}
	}

	refundLabel := "none"
	if intent != nil {
		issued, escalated := s.refundIssuer.Issue(context.WithoutCancel(ctx), intent)
		result.Refund.RefundIntentID = issued.ID
		result.Refund.Escalated = escalated
		refundLabel = "issued"
		if escalated {
			refundLabel = "escalated"
		} else {
			updated.PaymentStatus = model.PaymentStatusRefunded
		}
	}
	metrics.Cancellations.WithLabelValues(refundLabel).Inc()

	s.cfg.Log.Info("Session cancelled",
		"session_id", id,
		"booking_id", current.BookingID,
		"actor_id", actor.ID,
		"previous_status", current.Status,
		"paid", paid,
		"refund", refundLabel,
	)

	event := sessionEvent(notifications.SessionCancelled, updated)
	event.Details = map[string]any{"reason": req.Reason, "cancelled_by": actor.ID}
	if result.Refund != nil {
		event.Details["refund_amount_minor"] = result.Refund.RefundAmount
		event.Details["escalated"] = result.Refund.Escalated
	}
	s.dispatcher.Notify(ctx, event)

	return result, nil
}

func (s *sessionService) refundBreakdown(ctx context.Context, session *model.Session) (refunds.Breakdown, error) {
	pct, err := s.refundPolicy.DeductionPercent(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load refund policy", "session_id", session.ID, "error", err)
		return refunds.Breakdown{}, apperrors.Internal("Failed to load refund policy", err)
	}
	breakdown, err := refunds.Calculate(session.UnitPrice, pct)
	if err != nil {
		return refunds.Breakdown{}, apperrors.Internal("Invalid refund policy", err)
	}
	return breakdown, nil
}

// cancelConflict explains a lost cancel race. A session that is still
// cancellable had its payment recorded meanwhile, so the refund decision
// must be retried.
func (s *sessionService) cancelConflict(ctx context.Context, id string) error {
	current, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return apperrors.NotCancellable("Session cannot be cancelled in its current state", "unknown")
	}
	if lifecycle.CheckCancel(current) == nil {
		return apperrors.Conflict("Session payment changed during cancellation, retry the request")
	}
	return apperrors.NotCancellable("Session cannot be cancelled in its current state", current.Status)
}

func (s *sessionService) RecordPayment(ctx context.Context, actor model.Actor, id string, req *model.PaymentRecord) (*model.Session, error) {
	if err := s.validator.ValidatePayment(req); err != nil {
		return nil, validationError(err)
	}

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isOwner(actor, session) {
		return nil, apperrors.Forbidden("Only the session owner can record a payment")
	}
	if lifecycle.IsTerminal(session.Status) && session.Status != model.SessionStatusCompleted {
		return nil, apperrors.Conflict("Cannot record a payment for a cancelled session")
	}

	updated, err := s.sessions.MarkPaid(ctx, id, req.PaymentRef)
	if err != nil {
		if errors.Is(err, sessionserrors.ErrAlreadyPaid) {
			return nil, apperrors.Conflict("Session payment already recorded")
		}
		return nil, s.translate(err, id, "Failed to record payment")
	}

	s.cfg.Log.Info("Session payment recorded", "session_id", id, "amount", money.Format(updated.UnitPrice))
	return updated, nil
}

func (s *sessionService) PromoteUpcoming(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.sessions.PromoteUpcoming(ctx, now.Add(s.cfg.UpcomingWindow), now.UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.cfg.Log.Info("Sessions marked upcoming", "count", n)
	}
	return n, nil
}

func (s *sessionService) load(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}

	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "Failed to retrieve session")
	}
	return session, nil
}

func (s *sessionService) translate(err error, id, message string) error {
	switch {
	case apperrors.IsAppError(err):
		return apperrors.AsAppError(err)
	case errors.Is(err, sessionserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Session", id)
	case errors.Is(err, sessionserrors.ErrInvalidTransition):
		return apperrors.Conflict(fmt.Sprintf("Session %s: %v", id, err))
	case errors.Is(err, sessionserrors.ErrNotCancellable):
		return apperrors.NotCancellable("Session cannot be cancelled in its current state", "")
	}

	s.cfg.Log.Error(message, "session_id", id, "error", err)
	return apperrors.Internal(message, err)
}

func newRefundIntent(session *model.Session, b refunds.Breakdown, reason string, now time.Time) *model.RefundIntent {
	return &model.RefundIntent{
		ID:               uuid.NewString(),
		SessionID:        session.ID,
		BookingID:        session.BookingID,
		PaymentRef:       session.PaymentRef,
		RequestedAmount:  b.Requested,
		DeductionPercent: b.DeductionPercent.String(),
		DeductionAmount:  b.Deduction,
		RefundAmount:     b.Refund,
		Status:           model.RefundStatusFailedPendingManual,
		Attempts:         0,
		Reason:           reason,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func sessionEvent(eventType notifications.EventType, session *model.Session) notifications.Event {
	return notifications.Event{
		Type:      eventType,
		SessionID: session.ID,
		BookingID: session.BookingID,
		OwnerID:   session.OwnerID,
		SitterID:  session.SitterID,
	}
}

func validationError(err error) error {
	return apperrors.Validation("Request validation failed", map[string]any{
		"error": err.Error(),
	})
}

func isOwner(actor model.Actor, session *model.Session) bool {
	return actor.Role == model.RoleOwner && actor.ID == session.OwnerID
}

func isAssignedSitter(actor model.Actor, session *model.Session) bool {
	return actor.Role == model.RoleSitter && session.SitterID != "" && actor.ID == session.SitterID
}
