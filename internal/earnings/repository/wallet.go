package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	earningserrors "petsit/internal/earnings/errors"
	"petsit/pkg/config"
	mongotx "petsit/pkg/db/mongo"
	"petsit/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	WalletsCollectionName = "Wallets"
)

type WalletRepository interface {
	FindBySitter(ctx context.Context, sitterID string) (*model.Wallet, error)
	CreditPending(ctx context.Context, sitterID string, amount int64, at time.Time) (*model.Wallet, error)
	MovePendingToBalance(ctx context.Context, walletID string, amount int64, at time.Time) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoWalletRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoWalletRepository(cfg *config.Config) WalletRepository {
	return &mongoWalletRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(WalletsCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoWalletRepository) FindBySitter(ctx context.Context, sitterID string) (*model.Wallet, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var wallet model.Wallet
	err := r.collection.FindOne(ctx, bson.M{"sitter_id": sitterID}).Decode(&wallet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, earningserrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	return &wallet, nil
}

// CreditPending creates the wallet on first use and adds amount to both the
// pending and lifetime totals.
func (r *mongoWalletRepository) CreditPending(ctx context.Context, sitterID string, amount int64, at time.Time) (*model.Wallet, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{
			"pending_amount_minor": amount,
			"total_earnings_minor": amount,
		},
		"$set": bson.M{"updated_at": at},
		"$setOnInsert": bson.M{
			"_id":             uuid.NewString(),
			"balance_minor":   int64(0),
			"withdrawn_minor": int64(0),
			"created_at":      at,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var wallet model.Wallet
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"sitter_id": sitterID}, update, opts).Decode(&wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}
	return &wallet, nil
}

func (r *mongoWalletRepository) MovePendingToBalance(ctx context.Context, walletID string, amount int64, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":                  walletID,
		"pending_amount_minor": bson.M{"$gte": amount},
	}
	update := bson.M{
		"$inc": bson.M{
			"pending_amount_minor": -amount,
			"balance_minor":        amount,
		},
		"$set": bson.M{"updated_at": at},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release wallet funds: %w", err)
	}
	if result.MatchedCount == 0 {
		return earningserrors.ErrInsufficientPending
	}
	return nil
}

func (r *mongoWalletRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
