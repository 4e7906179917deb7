package mongo

import (
	"context"
	"fmt"

	"petsit/internal/migrations/mongo/validators"
	"petsit/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	SessionsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}, {Key: "sequence_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_at", Value: 1}}},
		{Keys: bson.D{{Key: "sitter_id", Value: 1}, {Key: "scheduled_at", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	}

	ServiceCodesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	RefundIntentsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "attempts", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	WalletsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sitter_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	WalletLedgerIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"type": "earning"}),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "available_at", Value: 1}}},
		{Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	ServicesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "active", Value: 1}}},
	}
)

type CollectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func Collections() map[string]CollectionDef {
	return map[string]CollectionDef{
		"Bookings":       {Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		"Sessions":       {Indexes: SessionsIndexes, Validator: validators.SessionValidator},
		"Service_codes":  {Indexes: ServiceCodesIndexes, Validator: validators.ServiceCodeValidator},
		"Refund_intents": {Indexes: RefundIntentsIndexes, Validator: validators.RefundIntentValidator},
		"Wallets":        {Indexes: WalletsIndexes, Validator: validators.WalletValidator},
		"Wallet_ledger":  {Indexes: WalletLedgerIndexes, Validator: validators.WalletLedgerValidator},
		"Booking_locks":  {Indexes: BookingLocksIndexes},
		"Services":       {Indexes: ServicesIndexes, Validator: validators.ServiceValidator},
		"Settings":       {},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}

	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
