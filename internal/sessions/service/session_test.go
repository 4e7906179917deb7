package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"petsit/internal/notifications"
	"petsit/internal/sessions/codes"
	"petsit/internal/sessions/validator"
	"petsit/internal/settings"
	"petsit/pkg/config"
	apperrors "petsit/pkg/errors"
	"petsit/pkg/logger"
	"petsit/pkg/model"
	"petsit/pkg/sealer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner  = model.Actor{ID: "owner-1", Role: model.RoleOwner}
	sitter = model.Actor{ID: "sitter-1", Role: model.RoleSitter}
	admin  = model.Actor{ID: "ops-1", Role: model.RoleAdmin}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []notifications.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notifications.EventType
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc      *sessionService
	sessions *fakeSessionRepo
	codes    *fakeCodeRepo
	earnings *fakeEarnings
	refunds  *fakeRefundRepo
	issuer   *fakeRefundIssuer
	pub      *recordingPublisher
	plain    map[string]string
	now      time.Time
}

func newFixture(t *testing.T, session *model.Session) *fixture {
	t.Helper()

	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("s", 32)))
	seal, err := sealer.New(key)
	require.NoError(t, err)
	codeIssuer := codes.NewIssuer(seal, 24*time.Hour)

	issued, err := codeIssuer.Issue(session)
	require.NoError(t, err)
	plain := map[string]string{}
	for _, c := range issued {
		plain[c.Type] = c.Plain
	}

	f := &fixture{
		sessions: newFakeSessionRepo(session),
		codes:    newFakeCodeRepo(),
		earnings: &fakeEarnings{},
		refunds:  &fakeRefundRepo{},
		pub:      &recordingPublisher{},
		plain:    plain,
		now:      session.ScheduledAt.Add(5 * time.Minute),
	}
	require.NoError(t, f.codes.CreateMany(context.Background(), issued))
	f.issuer = &fakeRefundIssuer{sessions: f.sessions}

	log := logger.Discard()
	cfg := &config.Config{Log: log, UpcomingWindow: 24 * time.Hour}
	svc := NewSessionService(Dependencies{
		Sessions:     f.sessions,
		Codes:        f.codes,
		CodeIssuer:   codeIssuer,
		Validator:    validator.NewSessionValidator(log),
		Earnings:     f.earnings,
		Refunds:      f.refunds,
		RefundIssuer: f.issuer,
		RefundPolicy: settings.StaticRefundPolicy(decimal.NewFromInt(10)),
		Dispatcher:   notifications.NewDispatcher(f.pub, log),
	}, cfg).(*sessionService)
	svc.now = func() time.Time { return f.now }
	f.svc = svc

	return f
}

func newSession(status string) *model.Session {
	scheduled := time.Date(2024, 1, 4, 9, 30, 0, 0, time.UTC)
	return &model.Session{
		ID:             "sess-1",
		BookingID:      "book-1",
		OwnerID:        owner.ID,
		SitterID:       sitter.ID,
		Recurring:      true,
		SequenceNumber: 2,
		Date:           time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		Time:           "09:30",
		ScheduledAt:    scheduled,
		UnitPrice:      100000,
		Status:         status,
		PaymentStatus:  model.PaymentStatusPending,
	}
}

func requireCode(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.Equal(t, code, appErr.Code, err.Error())
	return appErr
}

func TestStart_WithValidCode(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusConfirmed))

	session, err := f.svc.Start(context.Background(), sitter, "sess-1", &model.CodeRedemption{Code: f.plain[model.CodeTypeStart]})
	require.NoError(t, err)

	assert.Equal(t, model.SessionStatusOngoing, session.Status)
	require.NotNil(t, session.ServiceStartedAt)
	assert.Equal(t, f.now, *session.ServiceStartedAt)

	code, _ := f.codes.FindBySessionAndType(context.Background(), "sess-1", model.CodeTypeStart)
	assert.True(t, code.Used)
	assert.Equal(t, []notifications.EventType{notifications.SessionStarted}, f.pub.types())
}

func TestStart_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status string
		actor  model.Actor
		code   func(f *fixture) string
		setup  func(f *fixture)
		err    string
		reason string
	}{
		{
			name:   "wrong digits",
			status: model.SessionStatusConfirmed,
			actor:  sitter,
			code: func(f *fixture) string {
				if f.plain[model.CodeTypeStart] == "000000" {
					return "111111"
				}
				return "000000"
			},
			err:    apperrors.CodeInvalidOrExpiredCode,
			reason: "code_mismatch",
		},
		{
			name:   "end code presented at start",
			status: model.SessionStatusConfirmed,
			actor:  sitter,
			code: func(f *fixture) string {
				if f.plain[model.CodeTypeEnd] == f.plain[model.CodeTypeStart] {
					return "x"
				}
				return f.plain[model.CodeTypeEnd]
			},
			err:    apperrors.CodeInvalidOrExpiredCode,
			reason: "code_mismatch",
		},
		{
			name:   "session still pending",
			status: model.SessionStatusPending,
			actor:  sitter,
			code:   func(f *fixture) string { return f.plain[model.CodeTypeStart] },
			err:    apperrors.CodeInvalidOrExpiredCode,
			reason: "session_not_startable",
		},
		{
			name:   "code expired",
			status: model.SessionStatusConfirmed,
			actor:  sitter,
			code:   func(f *fixture) string { return f.plain[model.CodeTypeStart] },
			setup:  func(f *fixture) { f.now = f.now.Add(48 * time.Hour) },
			err:    apperrors.CodeInvalidOrExpiredCode,
			reason: "code_expired",
		},
		{
			name:   "another sitter",
			status: model.SessionStatusConfirmed,
			actor:  model.Actor{ID: "sitter-2", Role: model.RoleSitter},
			code:   func(f *fixture) string { return f.plain[model.CodeTypeStart] },
			err:    apperrors.CodeForbidden,
		},
		{
			name:   "malformed code",
			status: model.SessionStatusConfirmed,
			actor:  sitter,
			code:   func(*fixture) string { return "12ab" },
			err:    apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, newSession(tt.status))
			if tt.setup != nil {
				tt.setup(f)
			}

			code := tt.code(f)
			if code == "x" {
				t.Skip("start and end codes collided")
			}

			_, err := f.svc.Start(context.Background(), tt.actor, "sess-1", &model.CodeRedemption{Code: code})
			appErr := requireCode(t, err, tt.err)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, appErr.Details["reason"])
			}

			assert.Equal(t, tt.status, f.sessions.get("sess-1").Status)
			stored, _ := f.codes.FindBySessionAndType(context.Background(), "sess-1", model.CodeTypeStart)
			assert.False(t, stored.Used)
			assert.Empty(t, f.pub.types())
		})
	}
}

func TestStart_CodeCannotBeReused(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusAssigned))
	req := func() *model.CodeRedemption { return &model.CodeRedemption{Code: f.plain[model.CodeTypeStart]} }

	_, err := f.svc.Start(context.Background(), sitter, "sess-1", req())
	require.NoError(t, err)

	_, err = f.svc.Start(context.Background(), sitter, "sess-1", req())
	requireCode(t, err, apperrors.CodeInvalidOrExpiredCode)
}

func TestStart_ConcurrentRedemptionsHaveOneWinner(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusConfirmed))
	code := f.plain[model.CodeTypeStart]

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Start(context.Background(), sitter, "sess-1", &model.CodeRedemption{Code: code})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidOrExpiredCode), err.Error())
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, model.SessionStatusOngoing, f.sessions.get("sess-1").Status)
}

func TestEnd_CompletesAndAccrues(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusConfirmed))

	_, err := f.svc.Start(context.Background(), sitter, "sess-1", &model.CodeRedemption{Code: f.plain[model.CodeTypeStart]})
	require.NoError(t, err)

	f.now = f.now.Add(95 * time.Minute)
	session, err := f.svc.End(context.Background(), sitter, "sess-1", &model.CodeRedemption{Code: f.plain[model.CodeTypeEnd]})
	require.NoError(t, err)

	assert.Equal(t, model.SessionStatusCompleted, session.Status)
	require.NotNil(t, session.CompletedAt)
	require.NotNil(t, session.ActualDurationMin)
	assert.Equal(t, int64(95), *session.ActualDurationMin)

	require.Len(t, f.earnings.accrued, 1)
	assert.Equal(t, int64(100000), f.earnings.accrued[0].UnitPrice)
	assert.Equal(t, sitter.ID, f.earnings.accrued[0].SitterID)
	assert.Equal(t, []notifications.EventType{notifications.SessionStarted, notifications.SessionCompleted}, f.pub.types())
}

func TestEnd_OneTimeSessionSkipsDuration(t *testing.T) {
	s := newSession(model.SessionStatusOngoing)
	s.Recurring = false
	started := s.ScheduledAt
	s.ServiceStartedAt = &started
	f := newFixture(t, s)

	session, err := f.svc.End(context.Background(), sitter, "sess-1", &model.CodeRedemption{Code: f.plain[model.CodeTypeEnd]})
	require.NoError(t, err)

	assert.Nil(t, session.ActualDurationMin)
	assert.NotNil(t, session.CompletedAt)
}

func TestEnd_RequiresOngoingSession(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusConfirmed))

	_, err := f.svc.End(context.Background(), sitter, "sess-1", &model.CodeRedemption{Code: f.plain[model.CodeTypeEnd]})

	appErr := requireCode(t, err, apperrors.CodeInvalidOrExpiredCode)
	assert.Equal(t, "session_not_ongoing", appErr.Details["reason"])
	assert.Empty(t, f.earnings.accrued)
}

func TestEnd_AccrualFailureFailsRedemption(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusOngoing))
	f.earnings.err = errors.New("wallet write failed")

	_, err := f.svc.End(context.Background(), sitter, "sess-1", &model.CodeRedemption{Code: f.plain[model.CodeTypeEnd]})

	requireCode(t, err, apperrors.CodeInternal)
	assert.Empty(t, f.pub.types())
}

func TestCancel_UnpaidSession(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusAssigned))

	result, err := f.svc.Cancel(context.Background(), owner, "sess-1", &model.CancelRequest{Reason: "pet is unwell"})
	require.NoError(t, err)

	assert.Equal(t, model.SessionStatusUserCancelled, result.Session.Status)
	assert.Equal(t, "pet is unwell", result.Session.CancelReason)
	assert.Equal(t, owner.ID, result.Session.CancelledBy)
	assert.Nil(t, result.Refund)
	assert.Empty(t, f.refunds.intents)
	assert.Empty(t, f.issuer.issued)
	assert.Equal(t, []notifications.EventType{notifications.SessionCancelled}, f.pub.types())
}

func TestCancel_PaidSessionRefundsWithDeduction(t *testing.T) {
	s := newSession(model.SessionStatusConfirmed)
	s.PaymentStatus = model.PaymentStatusPaid
	s.PaymentRef = "pi_123"
	f := newFixture(t, s)

	result, err := f.svc.Cancel(context.Background(), owner, "sess-1", &model.CancelRequest{Reason: "plans changed"})
	require.NoError(t, err)

	require.NotNil(t, result.Refund)
	assert.Equal(t, int64(90000), result.Refund.RefundAmount)
	assert.Equal(t, int64(10000), result.Refund.DeductionAmount)
	assert.Equal(t, "10", result.Refund.DeductionPercent)
	assert.Equal(t, "5-7 business days", result.Refund.ProcessingTime)
	assert.False(t, result.Refund.Escalated)
	assert.NotEmpty(t, result.Refund.RefundIntentID)

	require.Len(t, f.refunds.intents, 1)
	intent := f.refunds.intents[0]
	assert.Equal(t, "FAILED_PENDING_MANUAL", intent.Status)
	assert.Zero(t, intent.Attempts)
	assert.Equal(t, "pi_123", intent.PaymentRef)
	assert.Equal(t, int64(100000), intent.RequestedAmount)

	assert.Equal(t, model.SessionStatusUserCancelled, result.Session.Status)
	assert.Equal(t, model.PaymentStatusRefunded, result.Session.PaymentStatus)
	assert.Equal(t, model.PaymentStatusRefunded, f.sessions.get("sess-1").PaymentStatus)
}

func TestCancel_GatewayFailureEscalatesButCancels(t *testing.T) {
	s := newSession(model.SessionStatusUpcoming)
	s.PaymentStatus = model.PaymentStatusPaid
	f := newFixture(t, s)
	f.issuer.escalate = true

	result, err := f.svc.Cancel(context.Background(), owner, "sess-1", &model.CancelRequest{Reason: "plans changed"})
	require.NoError(t, err)

	assert.True(t, result.Refund.Escalated)
	assert.Equal(t, int64(90000), result.Refund.RefundAmount)
	assert.Equal(t, model.SessionStatusUserCancelled, f.sessions.get("sess-1").Status)
	assert.Equal(t, model.PaymentStatusPaid, f.sessions.get("sess-1").PaymentStatus)
}

func TestCancel_PaymentRecordedDuringCancel(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusConfirmed))
	var once sync.Once
	f.sessions.beforeTransition = func() {
		once.Do(func() {
			_, err := f.sessions.MarkPaid(context.Background(), "sess-1", "pi_late")
			require.NoError(t, err)
		})
	}

	_, err := f.svc.Cancel(context.Background(), owner, "sess-1", &model.CancelRequest{Reason: "plans changed"})

	requireCode(t, err, apperrors.CodeConflict)
	stored := f.sessions.get("sess-1")
	assert.Equal(t, model.SessionStatusConfirmed, stored.Status)
	assert.Equal(t, model.PaymentStatusPaid, stored.PaymentStatus)
	assert.Empty(t, f.refunds.intents)

	result, err := f.svc.Cancel(context.Background(), owner, "sess-1", &model.CancelRequest{Reason: "plans changed"})
	require.NoError(t, err)

	require.NotNil(t, result.Refund)
	assert.Equal(t, int64(90000), result.Refund.RefundAmount)
	require.Len(t, f.refunds.intents, 1)
	assert.Equal(t, "pi_late", f.refunds.intents[0].PaymentRef)
	assert.Equal(t, model.SessionStatusUserCancelled, f.sessions.get("sess-1").Status)
}

func TestCancel_NotCancellable(t *testing.T) {
	for _, status := range []string{model.SessionStatusOngoing, model.SessionStatusCompleted, model.SessionStatusUserCancelled} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t, newSession(status))

			_, err := f.svc.Cancel(context.Background(), owner, "sess-1", &model.CancelRequest{Reason: "plans changed"})

			appErr := requireCode(t, err, apperrors.CodeNotCancellable)
			assert.Equal(t, status, appErr.Details["status"])
		})
	}
}

func TestCancel_AfterStartWonRace(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusConfirmed))

	_, err := f.svc.Start(context.Background(), sitter, "sess-1", &model.CodeRedemption{Code: f.plain[model.CodeTypeStart]})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), owner, "sess-1", &model.CancelRequest{Reason: "too late"})
	requireCode(t, err, apperrors.CodeNotCancellable)
}

func TestCancel_Authorization(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusPending))

	_, err := f.svc.Cancel(context.Background(), sitter, "sess-1", &model.CancelRequest{Reason: "cannot make it"})
	requireCode(t, err, apperrors.CodeForbidden)

	result, err := f.svc.Cancel(context.Background(), admin, "sess-1", &model.CancelRequest{Reason: "sitter shortage"})
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCancelled, result.Session.Status)
}

func TestAssignAndConfirm(t *testing.T) {
	s := newSession(model.SessionStatusPending)
	s.SitterID = ""
	f := newFixture(t, s)

	_, err := f.svc.Assign(context.Background(), owner, "sess-1", &model.SitterAssignment{SitterID: sitter.ID})
	requireCode(t, err, apperrors.CodeForbidden)

	session, err := f.svc.Assign(context.Background(), admin, "sess-1", &model.SitterAssignment{SitterID: sitter.ID})
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusAssigned, session.Status)
	assert.Equal(t, sitter.ID, session.SitterID)

	_, err = f.svc.Confirm(context.Background(), model.Actor{ID: "sitter-2", Role: model.RoleSitter}, "sess-1")
	requireCode(t, err, apperrors.CodeForbidden)

	session, err = f.svc.Confirm(context.Background(), sitter, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusConfirmed, session.Status)

	_, err = f.svc.Confirm(context.Background(), sitter, "sess-1")
	requireCode(t, err, apperrors.CodeConflict)
}

func TestGetCodes_RevealsToOwnerOnly(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusConfirmed))

	revealed, err := f.svc.GetCodes(context.Background(), owner, "sess-1")
	require.NoError(t, err)
	require.Len(t, revealed, 2)
	for _, c := range revealed {
		assert.Equal(t, f.plain[c.Type], c.Plain)
	}

	_, err = f.svc.GetCodes(context.Background(), sitter, "sess-1")
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusConfirmed))

	for _, actor := range []model.Actor{owner, sitter, admin} {
		_, err := f.svc.GetByID(context.Background(), actor, "sess-1")
		assert.NoError(t, err, actor.ID)
	}

	_, err := f.svc.GetByID(context.Background(), model.Actor{ID: "stranger", Role: model.RoleOwner}, "sess-1")
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.GetByID(context.Background(), admin, "missing")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusConfirmed))

	session, err := f.svc.RecordPayment(context.Background(), owner, "sess-1", &model.PaymentRecord{PaymentRef: "pi_777"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, session.PaymentStatus)

	_, err = f.svc.RecordPayment(context.Background(), owner, "sess-1", &model.PaymentRecord{PaymentRef: "pi_778"})
	requireCode(t, err, apperrors.CodeConflict)
}

func TestPromoteUpcoming(t *testing.T) {
	f := newFixture(t, newSession(model.SessionStatusConfirmed))

	n, err := f.svc.PromoteUpcoming(context.Background(), f.now.Add(-30*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.PromoteUpcoming(context.Background(), f.now.Add(-20*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, model.SessionStatusUpcoming, f.sessions.get("sess-1").Status)
}
