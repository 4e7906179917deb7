package service

import (
	"context"
	"errors"
	"sync"
	"time"

	bookingserrors "petsit/internal/bookings/errors"
	"petsit/internal/catalog"
	sessionsrepo "petsit/internal/sessions/repository"
	sessions "petsit/internal/sessions/service"
	mongotx "petsit/pkg/db/mongo"
	"petsit/pkg/model"
)

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[string]*model.Booking{}}
}

func (r *fakeBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *booking
	r.bookings[booking.ID] = &cp
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) FindByOwner(_ context.Context, ownerID string, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		if b.OwnerID == ownerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	all, err := r.FindByOwner(ctx, ownerID, 0, 0)
	return int64(len(all)), err
}

func (r *fakeBookingRepo) MarkPaid(_ context.Context, id string, paymentRef string, at time.Time) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.PaymentStatus != model.PaymentStatusPending {
		return nil, bookingserrors.ErrAlreadyPaid
	}
	b.PaymentStatus = model.PaymentStatusPaid
	b.PaymentRef = paymentRef
	b.PaidAt = &at
	cp := *b
	return &cp, nil
}

// ExecuteTransaction restores the bookings it saw on entry when fn fails.
func (r *fakeBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.mu.Lock()
	snapshot := make(map[string]*model.Booking, len(r.bookings))
	for id, b := range r.bookings {
		cp := *b
		snapshot[id] = &cp
	}
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.bookings = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

type fakeLockRepo struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired int
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{held: map[string]bool{}}
}

func (r *fakeLockRepo) Acquire(_ context.Context, lock *model.BookingLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held[lock.ID] {
		return bookingserrors.ErrLocked
	}
	r.held[lock.ID] = true
	r.acquired++
	return nil
}

func (r *fakeLockRepo) Release(_ context.Context, lockID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, lockID)
	return nil
}

type fakeCatalog struct {
	prices   map[string]int64
	inactive map[string]bool
}

func (c *fakeCatalog) GetServicePrice(_ context.Context, serviceID string) (int64, error) {
	if c.inactive[serviceID] {
		return 0, catalog.ErrServiceInactive
	}
	price, ok := c.prices[serviceID]
	if !ok {
		return 0, catalog.ErrServiceNotFound
	}
	return price, nil
}

// fakeSessionRepo implements the calls bookings make; anything else panics.
type fakeSessionRepo struct {
	sessionsrepo.SessionRepository

	mu       sync.Mutex
	sessions []*model.Session
	err      error
}

func (r *fakeSessionRepo) CreateMany(_ context.Context, sessions []*model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, s := range sessions {
		cp := *s
		r.sessions = append(r.sessions, &cp)
	}
	return nil
}

func (r *fakeSessionRepo) Find(_ context.Context, filter sessionsrepo.Filter, limit int, _ int64) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Session
	for _, s := range r.sessions {
		if s.BookingID == filter.BookingID && len(out) < limit {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) MarkPaidByBooking(_ context.Context, bookingID string, paymentRef string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.BookingID == bookingID && s.PaymentStatus == model.PaymentStatusPending &&
			s.Status != model.SessionStatusCancelled && s.Status != model.SessionStatusUserCancelled {
			s.PaymentStatus = model.PaymentStatusPaid
			s.PaymentRef = paymentRef
			n++
		}
	}
	return n, nil
}

type fakeCodeRepo struct {
	sessionsrepo.CodeRepository

	mu    sync.Mutex
	codes []*model.ServiceCode
}

func (r *fakeCodeRepo) CreateMany(_ context.Context, codes []*model.ServiceCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, codes...)
	return nil
}

// fakeLifecycle stands in for the session service on booking cancel.
type fakeLifecycle struct {
	sessions.SessionService

	cancelFunc func(ctx context.Context, actor model.Actor, id string, req *model.CancelRequest) (*model.CancelResult, error)
}

func (f *fakeLifecycle) Cancel(ctx context.Context, actor model.Actor, id string, req *model.CancelRequest) (*model.CancelResult, error) {
	if f.cancelFunc == nil {
		return nil, errors.New("unexpected cancel")
	}
	return f.cancelFunc(ctx, actor, id, req)
}
