package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	earningserrors "petsit/internal/earnings/errors"
	"petsit/internal/earnings/repository"
	"petsit/pkg/config"
	apperrors "petsit/pkg/errors"
	"petsit/pkg/metrics"
	"petsit/pkg/model"

	"github.com/google/uuid"
)

type EarningsService interface {
	// Accrue credits the session's sitter. It must run inside the caller's
	// transaction; it is not idempotent on its own.
	Accrue(ctx context.Context, session *model.Session, at time.Time) (*model.WalletLedgerEntry, error)
	ReleaseMatured(ctx context.Context, now time.Time, limit int) (int, error)
	GetWallet(ctx context.Context, actor model.Actor, sitterID string) (*model.Wallet, error)
	ListEntries(ctx context.Context, actor model.Actor, sitterID string, limit int, offset int64) ([]*model.WalletLedgerEntry, int64, error)
}

type earningsService struct {
	wallets repository.WalletRepository
	ledger  repository.LedgerRepository
	cfg     *config.Config
}

func NewEarningsService(
	wallets repository.WalletRepository,
	ledger repository.LedgerRepository,
	cfg *config.Config,
) EarningsService {
	return &earningsService{
		wallets: wallets,
		ledger:  ledger,
		cfg:     cfg,
	}
}

func (s *earningsService) Accrue(ctx context.Context, session *model.Session, at time.Time) (*model.WalletLedgerEntry, error) {
	if session.SitterID == "" {
		return nil, earningserrors.ErrNoSitter
	}

	wallet, err := s.wallets.CreditPending(ctx, session.SitterID, session.UnitPrice, at)
	if err != nil {
		return nil, err
	}

	entry := &model.WalletLedgerEntry{
		ID:          uuid.NewString(),
		WalletID:    wallet.ID,
		SessionID:   session.ID,
		Amount:      session.UnitPrice,
		Type:        model.LedgerTypeEarning,
		Status:      model.LedgerStatusPending,
		AvailableAt: at.Add(s.cfg.EarningsHoldPeriod),
		Metadata: model.LedgerMetadata{
			BookingID:   session.BookingID,
			SessionDate: session.Date.Format(time.DateOnly),
			SessionTime: session.Time,
			UnitPrice:   session.UnitPrice,
		},
		CreatedAt: at,
		UpdatedAt: at,
	}

	if err := s.ledger.Create(ctx, entry); err != nil {
		return nil, err
	}

	metrics.EarningsAccrued.Add(float64(session.UnitPrice))
	return entry, nil
}

// ReleaseMatured moves up to limit matured entries into their wallets'
// available balance, one transaction per entry.
func (s *earningsService) ReleaseMatured(ctx context.Context, now time.Time, limit int) (int, error) {
	entries, err := s.ledger.FindMatured(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load matured entries: %w", err)
	}

	released := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return released, ctx.Err()
		}

		err := s.wallets.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			if err := s.ledger.MarkAvailable(txCtx, entry.ID, now); err != nil {
				return err
			}
			return s.wallets.MovePendingToBalance(txCtx, entry.WalletID, entry.Amount, now)
		})
		if err != nil {
			if errors.Is(err, earningserrors.ErrEntryNotPending) {
				continue
			}
			s.cfg.Log.Error("Failed to release ledger entry",
				"entry_id", entry.ID,
				"wallet_id", entry.WalletID,
				"error", err,
			)
			continue
		}

		released++
		metrics.EarningsReleased.Inc()
	}

	if released > 0 {
		s.cfg.Log.Info("Released matured earnings", "count", released)
	}
	return released, nil
}

func (s *earningsService) GetWallet(ctx context.Context, actor model.Actor, sitterID string) (*model.Wallet, error) {
	if err := authorizeWalletRead(actor, sitterID); err != nil {
		return nil, err
	}

	wallet, err := s.wallets.FindBySitter(ctx, sitterID)
	if err != nil {
		if errors.Is(err, earningserrors.ErrWalletNotFound) {
			return nil, apperrors.NotFoundWithID("Wallet", sitterID)
		}
		s.cfg.Log.Error("Failed to get wallet", "sitter_id", sitterID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve wallet", err)
	}
	return wallet, nil
}

func (s *earningsService) ListEntries(ctx context.Context, actor model.Actor, sitterID string, limit int, offset int64) ([]*model.WalletLedgerEntry, int64, error) {
	wallet, err := s.GetWallet(ctx, actor, sitterID)
	if err != nil {
		return nil, 0, err
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	entries, err := s.ledger.FindByWallet(ctx, wallet.ID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list ledger entries", "wallet_id", wallet.ID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve ledger entries", err)
	}

	count, err := s.ledger.CountByWallet(ctx, wallet.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to count ledger entries", "wallet_id", wallet.ID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve ledger entries", err)
	}

	return entries, count, nil
}

func authorizeWalletRead(actor model.Actor, sitterID string) error {
	if sitterID == "" {
		return apperrors.InvalidInput("Sitter ID cannot be empty")
	}
	if actor.IsAdmin() || (actor.Role == model.RoleSitter && actor.ID == sitterID) {
		return nil
	}
	return apperrors.Forbidden("Wallet belongs to another sitter")
}

