package service

import (
	"context"
	"slices"
	"sync"
	"time"

	refundsrepo "petsit/internal/refunds/repository"
	sessionserrors "petsit/internal/sessions/errors"
	"petsit/internal/sessions/repository"
	mongotx "petsit/pkg/db/mongo"
	"petsit/pkg/model"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session

	// beforeTransition runs ahead of every TransitionStatus to interleave a
	// concurrent writer.
	beforeTransition func()
}

func newFakeSessionRepo(sessions ...*model.Session) *fakeSessionRepo {
	r := &fakeSessionRepo{sessions: map[string]*model.Session{}}
	for _, s := range sessions {
		r.sessions[s.ID] = s
	}
	return r
}

func (r *fakeSessionRepo) get(id string) *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.sessions[id]
	return &cp
}

func (r *fakeSessionRepo) CreateMany(_ context.Context, sessions []*model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sessions {
		cp := *s
		r.sessions[s.ID] = &cp
	}
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, sessionserrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) Find(_ context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Session
	for _, s := range r.sessions {
		if filter.BookingID != "" && s.BookingID != filter.BookingID {
			continue
		}
		if filter.OwnerID != "" && s.OwnerID != filter.OwnerID {
			continue
		}
		if filter.SitterID != "" && s.SitterID != filter.SitterID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *model.Session) int { return a.SequenceNumber - b.SequenceNumber })
	if offset >= int64(len(out)) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, filter repository.Filter) (int64, error) {
	all, err := r.Find(ctx, filter, 1<<30, 0)
	return int64(len(all)), err
}

func (r *fakeSessionRepo) TransitionStatus(_ context.Context, id string, change repository.StatusChange) (*model.Session, error) {
	if r.beforeTransition != nil {
		r.beforeTransition()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !slices.Contains(change.From, s.Status) {
		return nil, sessionserrors.ErrStatusChanged
	}
	if change.PaymentStatus != "" && s.PaymentStatus != change.PaymentStatus {
		return nil, sessionserrors.ErrStatusChanged
	}
	change.Apply(s)
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) MarkPaid(_ context.Context, id string, paymentRef string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.PaymentStatus != model.PaymentStatusPending {
		return nil, sessionserrors.ErrAlreadyPaid
	}
	s.PaymentStatus = model.PaymentStatusPaid
	s.PaymentRef = paymentRef
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) MarkPaidByBooking(_ context.Context, bookingID string, paymentRef string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.BookingID == bookingID && s.PaymentStatus == model.PaymentStatusPending {
			s.PaymentStatus = model.PaymentStatusPaid
			s.PaymentRef = paymentRef
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) MarkRefunded(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.PaymentStatus != model.PaymentStatusPaid {
		return sessionserrors.ErrNotFound
	}
	s.PaymentStatus = model.PaymentStatusRefunded
	return nil
}

func (r *fakeSessionRepo) PromoteUpcoming(_ context.Context, before time.Time, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.Status == model.SessionStatusConfirmed && !s.ScheduledAt.After(before) {
			s.Status = model.SessionStatusUpcoming
			s.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

type fakeCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.ServiceCode
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{codes: map[string]*model.ServiceCode{}}
}

func (r *fakeCodeRepo) CreateMany(_ context.Context, codes []*model.ServiceCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range codes {
		cp := *c
		cp.Plain = ""
		r.codes[c.ID] = &cp
	}
	return nil
}

func (r *fakeCodeRepo) FindBySessionAndType(_ context.Context, sessionID, codeType string) (*model.ServiceCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.SessionID == sessionID && c.Type == codeType {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sessionserrors.ErrCodeNotFound
}

func (r *fakeCodeRepo) FindBySession(_ context.Context, sessionID string) ([]*model.ServiceCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ServiceCode
	for _, c := range r.codes {
		if c.SessionID == sessionID {
			cp := *c
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.ServiceCode) int {
		if a.Type == b.Type {
			return 0
		}
		if a.Type == model.CodeTypeStart {
			return -1
		}
		return 1
	})
	return out, nil
}

func (r *fakeCodeRepo) MarkUsed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok || c.Used {
		return sessionserrors.ErrCodeAlreadyUsed
	}
	c.Used = true
	c.UsedAt = &at
	return nil
}

type fakeEarnings struct {
	mu      sync.Mutex
	accrued []*model.Session
	err     error
}

func (f *fakeEarnings) Accrue(_ context.Context, session *model.Session, at time.Time) (*model.WalletLedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.accrued = append(f.accrued, session)
	return &model.WalletLedgerEntry{SessionID: session.ID, Amount: session.UnitPrice, CreatedAt: at}, nil
}

func (f *fakeEarnings) ReleaseMatured(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func (f *fakeEarnings) GetWallet(context.Context, model.Actor, string) (*model.Wallet, error) {
	return nil, nil
}

func (f *fakeEarnings) ListEntries(context.Context, model.Actor, string, int, int64) ([]*model.WalletLedgerEntry, int64, error) {
	return nil, 0, nil
}

type fakeRefundRepo struct {
	mu      sync.Mutex
	intents []*model.RefundIntent
}

func (r *fakeRefundRepo) Create(_ context.Context, intent *model.RefundIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *intent
	r.intents = append(r.intents, &cp)
	return nil
}

func (r *fakeRefundRepo) FindByID(_ context.Context, id string) (*model.RefundIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.intents {
		if in.ID == id {
			return in, nil
		}
	}
	return nil, refundsrepo.ErrNotFound
}

func (r *fakeRefundRepo) FindBySession(_ context.Context, sessionID string) (*model.RefundIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.intents {
		if in.SessionID == sessionID {
			return in, nil
		}
	}
	return nil, refundsrepo.ErrNotFound
}

func (r *fakeRefundRepo) MarkInitiated(context.Context, string, string) (*model.RefundIntent, error) {
	return nil, refundsrepo.ErrAlreadySettled
}

func (r *fakeRefundRepo) RecordFailure(context.Context, string, string) (*model.RefundIntent, error) {
	return nil, refundsrepo.ErrAlreadySettled
}

func (r *fakeRefundRepo) FindRetryable(context.Context, int, int) ([]*model.RefundIntent, error) {
	return nil, nil
}

// fakeRefundIssuer settles or escalates without a gateway and mirrors the
// session payment update the real issuer performs.
type fakeRefundIssuer struct {
	escalate bool
	sessions *fakeSessionRepo
	issued   []*model.RefundIntent
}

func (f *fakeRefundIssuer) Issue(ctx context.Context, intent *model.RefundIntent) (*model.RefundIntent, bool) {
	f.issued = append(f.issued, intent)
	out := *intent
	if f.escalate {
		out.Attempts = 1
		out.LastError = "gateway unavailable"
		return &out, true
	}
	out.Status = model.RefundStatusInitiated
	out.Attempts = 1
	_ = f.sessions.MarkRefunded(ctx, intent.SessionID)
	return &out, false
}
