package repository

import (
	"context"
	"fmt"
	"time"

	earningserrors "petsit/internal/earnings/errors"
	"petsit/pkg/config"
	mongotx "petsit/pkg/db/mongo"
	"petsit/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	LedgerCollectionName = "Wallet_ledger"
)

type LedgerRepository interface {
	Create(ctx context.Context, entry *model.WalletLedgerEntry) error
	FindMatured(ctx context.Context, now time.Time, limit int) ([]*model.WalletLedgerEntry, error)
	MarkAvailable(ctx context.Context, id string, at time.Time) error
	FindByWallet(ctx context.Context, walletID string, limit int, offset int64) ([]*model.WalletLedgerEntry, error)
	CountByWallet(ctx context.Context, walletID string) (int64, error)
}

type mongoLedgerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLedgerRepository(cfg *config.Config) LedgerRepository {
	return &mongoLedgerRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(LedgerCollectionName),
	}
}

func (r *mongoLedgerRepository) Create(ctx context.Context, entry *model.WalletLedgerEntry) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// FindMatured returns pending earnings whose hold has elapsed, oldest first.
func (r *mongoLedgerRepository) FindMatured(ctx context.Context, now time.Time, limit int) ([]*model.WalletLedgerEntry, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"type":         model.LedgerTypeEarning,
		"status":       model.LedgerStatusPending,
		"available_at": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "available_at", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

func (r *mongoLedgerRepository) MarkAvailable(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": model.LedgerStatusPending}
	update := bson.M{"$set": bson.M{
		"status":     model.LedgerStatusAvailable,
		"updated_at": at,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release ledger entry: %w", err)
	}
	if result.MatchedCount == 0 {
		return earningserrors.ErrEntryNotPending
	}
	return nil
}

func (r *mongoLedgerRepository) FindByWallet(ctx context.Context, walletID string, limit int, offset int64) ([]*model.WalletLedgerEntry, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, bson.M{"wallet_id": walletID}, opts)
}

func (r *mongoLedgerRepository) CountByWallet(ctx context.Context, walletID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"wallet_id": walletID})
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

func (r *mongoLedgerRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.WalletLedgerEntry, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.WalletLedgerEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}
	return entries, nil
}
