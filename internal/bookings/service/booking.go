package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingserrors "petsit/internal/bookings/errors"
	"petsit/internal/bookings/repository"
	"petsit/internal/bookings/validator"
	"petsit/internal/catalog"
	"petsit/internal/notifications"
	"petsit/internal/pricing"
	"petsit/internal/recurrence"
	"petsit/internal/sessions/codes"
	sessionsrepo "petsit/internal/sessions/repository"
	sessions "petsit/internal/sessions/service"
	"petsit/pkg/config"
	apperrors "petsit/pkg/errors"
	"petsit/pkg/metrics"
	"petsit/pkg/model"
	"petsit/pkg/money"

	"github.com/google/uuid"
)

const lockTTL = 10 * time.Second

type BookingService interface {
	Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.BookingCreated, error)
	Estimate(ctx context.Context, req *model.EstimateRequest) (*model.BookingEstimate, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	ListMine(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error)
	RecordPayment(ctx context.Context, actor model.Actor, id string, req *model.PaymentRecord) (*model.Booking, error)
	Cancel(ctx context.Context, actor model.Actor, id string, req *model.CancelRequest) (*model.CancelResult, error)
}

type Dependencies struct {
	Bookings   repository.BookingRepository
	Locks      repository.BookingLockRepository
	Validator  *validator.BookingValidator
	Catalog    catalog.Catalog
	Sessions   sessionsrepo.SessionRepository
	Codes      sessionsrepo.CodeRepository
	CodeIssuer *codes.Issuer
	Lifecycle  sessions.SessionService
	Dispatcher *notifications.Dispatcher
}

type bookingService struct {
	bookings   repository.BookingRepository
	locks      repository.BookingLockRepository
	validator  *validator.BookingValidator
	catalog    catalog.Catalog
	sessions   sessionsrepo.SessionRepository
	codes      sessionsrepo.CodeRepository
	codeIssuer *codes.Issuer
	lifecycle  sessions.SessionService
	dispatcher *notifications.Dispatcher
	cfg        *config.Config
	now        func() time.Time
}

func NewBookingService(deps Dependencies, cfg *config.Config) BookingService {
	return &bookingService{
		bookings:   deps.Bookings,
		locks:      deps.Locks,
		validator:  deps.Validator,
		catalog:    deps.Catalog,
		sessions:   deps.Sessions,
		codes:      deps.Codes,
		codeIssuer: deps.CodeIssuer,
		lifecycle:  deps.Lifecycle,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// schedule is a parsed and priced booking range. Estimate, price validation
// and materialisation all read from the same schedule.
type schedule struct {
	rule  *recurrence.Rule
	start time.Time
	end   time.Time
	quote pricing.Quote
}

func (s *bookingService) plan(ctx context.Context, serviceID string, recurring bool, pattern, startDate, endDate string) (*schedule, error) {
	start, err := time.Parse(validator.DateLayout, startDate)
	if err != nil {
		return nil, apperrors.InvalidInput("start_date must be YYYY-MM-DD")
	}
	end := start

	var rule *recurrence.Rule
	if recurring {
		if end, err = time.Parse(validator.DateLayout, endDate); err != nil {
			return nil, apperrors.InvalidInput("end_date must be YYYY-MM-DD")
		}
		parsed, err := recurrence.ParsePattern(pattern)
		if err != nil {
			return nil, apperrors.InvalidPattern(pattern, err)
		}
		rule = &parsed
	}

	unitPrice, err := s.catalog.GetServicePrice(ctx, serviceID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrServiceNotFound):
			return nil, apperrors.NotFoundWithID("Service", serviceID)
		case errors.Is(err, catalog.ErrServiceInactive):
			return nil, apperrors.Conflict("Service is not available for booking")
		}
		s.cfg.Log.Error("Failed to load service price", "service_id", serviceID, "error", err)
		return nil, apperrors.Internal("Failed to load service price", err)
	}

	quote := pricing.NewQuote(rule, start, end, unitPrice)
	if len(quote.Occurrences) == 0 {
		return nil, apperrors.Validation("Booking has no sessions", map[string]any{
			"error":   bookingserrors.ErrNoOccurrences.Error(),
			"pattern": pattern,
		})
	}

	return &schedule{rule: rule, start: start, end: end, quote: quote}, nil
}

func (s *bookingService) Estimate(ctx context.Context, req *model.EstimateRequest) (*model.BookingEstimate, error) {
	if err := s.validator.ValidateEstimate(req); err != nil {
		return nil, validationError(err)
	}

	sched, err := s.plan(ctx, req.ServiceID, req.Recurring, req.Pattern, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	dates := make([]string, len(sched.quote.Occurrences))
	for i, o := range sched.quote.Occurrences {
		dates[i] = o.Date.Format(validator.DateLayout)
	}

	return &model.BookingEstimate{
		Dates:         dates,
		SessionCount:  len(dates),
		UnitPrice:     sched.quote.UnitPrice,
		ExpectedTotal: money.Format(sched.quote.Total),
	}, nil
}

// Create re-derives the price, rejects a mismatching declared total and
// stores the booking with all of its sessions and codes in one transaction.
func (s *bookingService) Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.BookingCreated, error) {
	if actor.Role != model.RoleOwner {
		return nil, apperrors.Forbidden("Only pet owners can create bookings")
	}
	req.OwnerID = actor.ID

	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, validationError(err)
	}

	loc, err := s.location(req.TimeZone)
	if err != nil {
		return nil, err
	}
	clock, err := time.Parse("15:04", req.TimeOfDay)
	if err != nil {
		return nil, apperrors.InvalidInput("time_of_day must be HH:MM")
	}

	sched, err := s.plan(ctx, req.ServiceID, req.Recurring, req.Pattern, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	if err := pricing.Validate(sched.quote.Total, req.DeclaredTotal); err != nil {
		metrics.PriceMismatches.Inc()
		s.cfg.Log.Warn("Declared total rejected",
			"owner_id", req.OwnerID,
			"service_id", req.ServiceID,
			"expected", money.Format(sched.quote.Total),
			"declared", req.DeclaredTotal.StringFixed(2),
		)
		return nil, apperrors.PriceMismatch(money.Format(sched.quote.Total), req.DeclaredTotal.StringFixed(2))
	}

	lockID, err := s.acquireLock(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.locks.Release(context.WithoutCancel(ctx), lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	now := s.now().UTC()
	booking := newBooking(req, sched, loc, now)
	sessionList := materialize(booking, sched.quote, clock, loc, now)

	var serviceCodes []*model.ServiceCode
	for _, session := range sessionList {
		issued, err := s.codeIssuer.Issue(session)
		if err != nil {
			s.cfg.Log.Error("Failed to issue service codes", "booking_id", booking.ID, "error", err)
			return nil, apperrors.Internal("Failed to create booking", err)
		}
		serviceCodes = append(serviceCodes, issued...)
	}

	err = s.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.bookings.Create(txCtx, booking); err != nil {
			return err
		}
		if err := s.sessions.CreateMany(txCtx, sessionList); err != nil {
			return err
		}
		return s.codes.CreateMany(txCtx, serviceCodes)
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "booking_id", booking.ID, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	kind := "one_time"
	if booking.Recurring {
		kind = "recurring"
	}
	metrics.BookingsCreated.WithLabelValues(kind).Inc()
	metrics.SessionsMaterialized.Add(float64(len(sessionList)))

	s.cfg.Log.Info("Booking created",
		"booking_id", booking.ID,
		"owner_id", booking.OwnerID,
		"service_id", booking.ServiceID,
		"pattern", booking.Pattern,
		"sessions", booking.SessionCount,
		"total", money.Format(booking.TotalAmount),
	)

	events := make([]notifications.Event, len(sessionList))
	for i, session := range sessionList {
		events[i] = notifications.Event{
			Type:      notifications.SessionCreated,
			SessionID: session.ID,
			BookingID: session.BookingID,
			OwnerID:   session.OwnerID,
			Details: map[string]any{
				"scheduled_at":    session.ScheduledAt,
				"sequence_number": session.SequenceNumber,
			},
		}
	}
	s.dispatcher.Notify(ctx, events...)

	return &model.BookingCreated{Booking: booking, Sessions: sessionList}, nil
}

// acquireLock rejects a second identical submission while the first one is
// still being stored.
func (s *bookingService) acquireLock(ctx context.Context, req *model.BookingRequest) (string, error) {
	key := strings.Join([]string{req.OwnerID, req.PetID, req.ServiceID, req.StartDate, req.TimeOfDay}, "|")
	now := s.now().UTC()
	lock := &model.BookingLock{
		ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String(),
		CreatedAt: now,
		ExpiresAt: now.Add(lockTTL),
	}

	if err := s.locks.Acquire(ctx, lock); err != nil {
		if errors.Is(err, bookingserrors.ErrLocked) {
			return "", apperrors.Conflict("An identical booking is already being processed")
		}
		s.cfg.Log.Error("Failed to acquire booking lock", "error", err)
		return "", apperrors.Internal("Failed to create booking", err)
	}
	return lock.ID, nil
}

func (s *bookingService) location(name string) (*time.Location, error) {
	if name == "" {
		return s.cfg.Location(), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown time zone %q", name))
	}
	return loc, nil
}

func (s *bookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isOwner(actor, booking) {
		return nil, apperrors.Forbidden("Booking belongs to another account")
	}
	return booking, nil
}

func (s *bookingService) ListMine(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	if actor.Role != model.RoleOwner {
		return nil, 0, apperrors.Forbidden("Only pet owners have bookings")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	bookings, err := s.bookings.FindByOwner(ctx, actor.ID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "owner_id", actor.ID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	count, err := s.bookings.CountByOwner(ctx, actor.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to count bookings", "owner_id", actor.ID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	return bookings, count, nil
}

// RecordPayment marks an upfront booking and every session under it as paid in
// one transaction. The payment is refused once any session has left the
// payable set, since the booking total would then cover work that will not
// happen. Per-session bookings are paid through the session endpoint instead.
func (s *bookingService) RecordPayment(ctx context.Context, actor model.Actor, id string, req *model.PaymentRecord) (*model.Booking, error) {
	if err := s.validator.ValidatePayment(req); err != nil {
		return nil, validationError(err)
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isOwner(actor, booking) {
		return nil, apperrors.Forbidden("Only the booking owner can record a payment")
	}
	if booking.PaymentMode != model.PaymentModeUpfront {
		return nil, apperrors.Conflict("Per-session bookings are paid one session at a time")
	}

	var (
		updated *model.Booking
		paid    int64
	)
	err = s.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.bookings.MarkPaid(txCtx, id, req.PaymentRef, s.now().UTC())
		if err != nil {
			return err
		}
		paid, err = s.sessions.MarkPaidByBooking(txCtx, id, req.PaymentRef)
		if err != nil {
			return err
		}
		if paid != int64(booking.SessionCount) {
			return bookingserrors.ErrSessionsNotPayable
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrAlreadyPaid):
			return nil, apperrors.Conflict("Booking payment already recorded")
		case errors.Is(err, bookingserrors.ErrSessionsNotPayable):
			return nil, apperrors.Conflict("Upfront payment is not accepted once a session is cancelled")
		}
		return nil, s.translate(err, id, "Failed to record payment")
	}

	s.cfg.Log.Info("Booking payment recorded",
		"booking_id", id,
		"sessions_paid", paid,
		"amount", money.Format(updated.TotalAmount),
	)
	return updated, nil
}

// Cancel is only offered for one-time bookings, where it cancels the single
// session. Recurring bookings are cancelled session by session.
func (s *bookingService) Cancel(ctx context.Context, actor model.Actor, id string, req *model.CancelRequest) (*model.CancelResult, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isOwner(actor, booking) {
		return nil, apperrors.Forbidden("Only the booking owner can cancel this booking")
	}
	if booking.Recurring {
		return nil, apperrors.NotCancellable(bookingserrors.ErrRecurringNotCancellable.Error(), "RECURRING")
	}

	found, err := s.sessions.Find(ctx, sessionsrepo.Filter{BookingID: id}, 1, 0)
	if err != nil {
		return nil, s.translate(err, id, "Failed to cancel booking")
	}
	if len(found) == 0 {
		return nil, apperrors.NotFoundWithID("Session", id)
	}

	return s.lifecycle.Cancel(ctx, actor, found[0].ID, req)
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *bookingService) translate(err error, id, message string) error {
	switch {
	case apperrors.IsAppError(err):
		return apperrors.AsAppError(err)
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	}

	s.cfg.Log.Error(message, "booking_id", id, "error", err)
	return apperrors.Internal(message, err)
}

func newBooking(req *model.BookingRequest, sched *schedule, loc *time.Location, now time.Time) *model.Booking {
	booking := &model.Booking{
		ID:            uuid.NewString(),
		OwnerID:       req.OwnerID,
		PetID:         req.PetID,
		ServiceID:     req.ServiceID,
		StartDate:     recurrence.CivilDate(sched.start),
		EndDate:       recurrence.CivilDate(sched.end),
		TimeOfDay:     req.TimeOfDay,
		TimeZone:      loc.String(),
		Recurring:     req.Recurring,
		PaymentMode:   req.PaymentMode,
		PaymentStatus: model.PaymentStatusPending,
		UnitPrice:     sched.quote.UnitPrice,
		SessionCount:  len(sched.quote.Occurrences),
		TotalAmount:   sched.quote.Total,
		DeclaredTotal: req.DeclaredTotal.StringFixed(2),
		CreatedAt:     now,
	}
	if sched.rule != nil {
		booking.Pattern = sched.rule.String()
	}
	return booking
}

// materialize turns each occurrence into a PENDING session scheduled at the
// booking's local time of day.
func materialize(booking *model.Booking, quote pricing.Quote, clock time.Time, loc *time.Location, now time.Time) []*model.Session {
	out := make([]*model.Session, len(quote.Occurrences))
	for i, o := range quote.Occurrences {
		y, m, d := o.Date.Date()
		out[i] = &model.Session{
			ID:             uuid.NewString(),
			BookingID:      booking.ID,
			OwnerID:        booking.OwnerID,
			PetID:          booking.PetID,
			ServiceID:      booking.ServiceID,
			Recurring:      booking.Recurring,
			SequenceNumber: o.SequenceNumber,
			Date:           o.Date,
			Time:           booking.TimeOfDay,
			ScheduledAt:    time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc).UTC(),
			UnitPrice:      quote.UnitPrice,
			Status:         model.SessionStatusPending,
			PaymentStatus:  model.PaymentStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}
	return out
}

func validationError(err error) error {
	return apperrors.Validation("Request validation failed", map[string]any{
		"error": err.Error(),
	})
}

func isOwner(actor model.Actor, booking *model.Booking) bool {
	return actor.Role == model.RoleOwner && actor.ID == booking.OwnerID
}
