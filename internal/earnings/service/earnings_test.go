package service

import (
	"context"
	"sync"
	"testing"
	"time"

	earningserrors "petsit/internal/earnings/errors"
	"petsit/pkg/config"
	mongotx "petsit/pkg/db/mongo"
	apperrors "petsit/pkg/errors"
	"petsit/pkg/logger"
	"petsit/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]*model.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: map[string]*model.Wallet{}}
}

func (r *fakeWalletRepo) FindBySitter(_ context.Context, sitterID string) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[sitterID]
	if !ok {
		return nil, earningserrors.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) CreditPending(_ context.Context, sitterID string, amount int64, at time.Time) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[sitterID]
	if !ok {
		w = &model.Wallet{ID: "w-" + sitterID, SitterID: sitterID, CreatedAt: at}
		r.wallets[sitterID] = w
	}
	w.PendingAmount += amount
	w.TotalEarnings += amount
	w.UpdatedAt = at
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) MovePendingToBalance(_ context.Context, walletID string, amount int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.ID != walletID {
			continue
		}
		if w.PendingAmount < amount {
			return earningserrors.ErrInsufficientPending
		}
		w.PendingAmount -= amount
		w.Balance += amount
		w.UpdatedAt = at
		return nil
	}
	return earningserrors.ErrWalletNotFound
}

func (r *fakeWalletRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

type fakeLedgerRepo struct {
	mu      sync.Mutex
	entries []*model.WalletLedgerEntry
}

func (r *fakeLedgerRepo) Create(_ context.Context, entry *model.WalletLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeLedgerRepo) FindMatured(_ context.Context, now time.Time, limit int) ([]*model.WalletLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WalletLedgerEntry
	for _, e := range r.entries {
		if e.Status == model.LedgerStatusPending && !e.AvailableAt.After(now) && len(out) < limit {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) MarkAvailable(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id && e.Status == model.LedgerStatusPending {
			e.Status = model.LedgerStatusAvailable
			e.UpdatedAt = at
			return nil
		}
	}
	return earningserrors.ErrEntryNotPending
}

func (r *fakeLedgerRepo) FindByWallet(_ context.Context, walletID string, limit int, offset int64) ([]*model.WalletLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WalletLedgerEntry
	for _, e := range r.entries {
		if e.WalletID == walletID {
			out = append(out, e)
		}
	}
	if offset >= int64(len(out)) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeLedgerRepo) CountByWallet(_ context.Context, walletID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.entries {
		if e.WalletID == walletID {
			n++
		}
	}
	return n, nil
}

func newTestService() (EarningsService, *fakeWalletRepo, *fakeLedgerRepo) {
	wallets := newFakeWalletRepo()
	ledger := &fakeLedgerRepo{}
	cfg := &config.Config{
		EarningsHoldPeriod: 72 * time.Hour,
		Log:                logger.Discard(),
	}
	return NewEarningsService(wallets, ledger, cfg), wallets, ledger
}

func completedSession(id string, price int64) *model.Session {
	return &model.Session{
		ID:        id,
		BookingID: "b-1",
		SitterID:  "sitter-1",
		Date:      time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		Time:      "09:30",
		UnitPrice: price,
		Status:    model.SessionStatusCompleted,
	}
}

func TestAccrue_CreatesWalletAndPendingEntry(t *testing.T) {
	svc, wallets, ledger := newTestService()
	at := time.Date(2024, 1, 4, 11, 0, 0, 0, time.UTC)

	entry, err := svc.Accrue(context.Background(), completedSession("s-1", 50000), at)
	require.NoError(t, err)

	assert.Equal(t, model.LedgerTypeEarning, entry.Type)
	assert.Equal(t, model.LedgerStatusPending, entry.Status)
	assert.Equal(t, int64(50000), entry.Amount)
	assert.Equal(t, at.Add(72*time.Hour), entry.AvailableAt)
	assert.Equal(t, model.LedgerMetadata{
		BookingID:   "b-1",
		SessionDate: "2024-01-04",
		SessionTime: "09:30",
		UnitPrice:   50000,
	}, entry.Metadata)

	wallet, err := wallets.FindBySitter(context.Background(), "sitter-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.Balance)
	assert.Equal(t, int64(50000), wallet.PendingAmount)
	assert.Equal(t, int64(50000), wallet.TotalEarnings)
	assert.Len(t, ledger.entries, 1)
}

func TestAccrue_AccumulatesOnExistingWallet(t *testing.T) {
	svc, wallets, _ := newTestService()
	at := time.Now().UTC()

	_, err := svc.Accrue(context.Background(), completedSession("s-1", 50000), at)
	require.NoError(t, err)
	_, err = svc.Accrue(context.Background(), completedSession("s-2", 30000), at)
	require.NoError(t, err)

	wallet, _ := wallets.FindBySitter(context.Background(), "sitter-1")
	assert.Equal(t, int64(80000), wallet.PendingAmount)
	assert.Equal(t, int64(80000), wallet.TotalEarnings)
}

func TestAccrue_RequiresSitter(t *testing.T) {
	svc, _, _ := newTestService()
	session := completedSession("s-1", 50000)
	session.SitterID = ""

	_, err := svc.Accrue(context.Background(), session, time.Now())
	assert.ErrorIs(t, err, earningserrors.ErrNoSitter)
}

func TestReleaseMatured(t *testing.T) {
	svc, wallets, _ := newTestService()
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := svc.Accrue(context.Background(), completedSession("s-1", 50000), at)
	require.NoError(t, err)
	_, err = svc.Accrue(context.Background(), completedSession("s-2", 30000), at.Add(48*time.Hour))
	require.NoError(t, err)

	released, err := svc.ReleaseMatured(context.Background(), at.Add(73*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	wallet, _ := wallets.FindBySitter(context.Background(), "sitter-1")
	assert.Equal(t, int64(50000), wallet.Balance)
	assert.Equal(t, int64(30000), wallet.PendingAmount)
	assert.Equal(t, int64(80000), wallet.TotalEarnings)

	released, err = svc.ReleaseMatured(context.Background(), at.Add(73*time.Hour), 100)
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestGetWallet_Authorization(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Accrue(context.Background(), completedSession("s-1", 50000), time.Now())
	require.NoError(t, err)

	tests := []struct {
		name  string
		actor model.Actor
		code  string
	}{
		{"own wallet", model.Actor{ID: "sitter-1", Role: model.RoleSitter}, ""},
		{"admin", model.Actor{ID: "ops", Role: model.RoleAdmin}, ""},
		{"another sitter", model.Actor{ID: "sitter-2", Role: model.RoleSitter}, apperrors.CodeForbidden},
		{"owner", model.Actor{ID: "sitter-1", Role: model.RoleOwner}, apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet, err := svc.GetWallet(context.Background(), tt.actor, "sitter-1")
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, "sitter-1", wallet.SitterID)
				return
			}
			assert.True(t, apperrors.HasCode(err, tt.code))
		})
	}
}

func TestGetWallet_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetWallet(context.Background(), model.Actor{ID: "ops", Role: model.RoleAdmin}, "nobody")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListEntries(t *testing.T) {
	svc, _, _ := newTestService()
	for _, id := range []string{"s-1", "s-2", "s-3"} {
		_, err := svc.Accrue(context.Background(), completedSession(id, 1000), time.Now())
		require.NoError(t, err)
	}

	entries, total, err := svc.ListEntries(context.Background(), model.Actor{ID: "sitter-1", Role: model.RoleSitter}, "sitter-1", 2, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, int64(3), total)
}
