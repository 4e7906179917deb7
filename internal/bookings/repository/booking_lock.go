package repository

import (
	"context"
	"fmt"

	bookingserrors "petsit/internal/bookings/errors"
	"petsit/pkg/config"
	mongotx "petsit/pkg/db/mongo"
	"petsit/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LocksCollectionName = "Booking_locks"

// BookingLockRepository provides advisory locks keyed by the lock _id.
// Stale locks are removed by a TTL index on expires_at.
type BookingLockRepository interface {
	Acquire(ctx context.Context, lock *model.BookingLock) error
	Release(ctx context.Context, lockID string) error
}

type mongoBookingLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		cfg:        cfg,
		collection: db.Collection(LocksCollectionName),
	}
}

// Acquire returns ErrLocked when another request holds the same key.
func (r *mongoBookingLockRepository) Acquire(ctx context.Context, lock *model.BookingLock) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return bookingserrors.ErrLocked
		}
		return fmt.Errorf("failed to acquire booking lock: %w", err)
	}
	return nil
}

func (r *mongoBookingLockRepository) Release(ctx context.Context, lockID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID}); err != nil {
		return fmt.Errorf("failed to release booking lock: %w", err)
	}
	return nil
}
