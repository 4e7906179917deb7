package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petsit/pkg/config"
	mongotx "petsit/pkg/db/mongo"
	"petsit/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Refund_intents"
)

var (
	ErrNotFound = errors.New("refund intent not found")

	// ErrAlreadySettled means the intent is no longer awaiting the gateway.
	ErrAlreadySettled = errors.New("refund intent already settled")
)

type RefundRepository interface {
	Create(ctx context.Context, intent *model.RefundIntent) error
	FindByID(ctx context.Context, id string) (*model.RefundIntent, error)
	FindBySession(ctx context.Context, sessionID string) (*model.RefundIntent, error)
	MarkInitiated(ctx context.Context, id string, gatewayRefundID string) (*model.RefundIntent, error)
	RecordFailure(ctx context.Context, id string, lastError string) (*model.RefundIntent, error)
	FindRetryable(ctx context.Context, maxAttempts int, limit int) ([]*model.RefundIntent, error)
}

type mongoRefundRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRefundRepository(cfg *config.Config) RefundRepository {
	return &mongoRefundRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *mongoRefundRepository) Create(ctx context.Context, intent *model.RefundIntent) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, intent); err != nil {
		return fmt.Errorf("failed to create refund intent: %w", err)
	}
	return nil
}

func (r *mongoRefundRepository) FindByID(ctx context.Context, id string) (*model.RefundIntent, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRefundRepository) FindBySession(ctx context.Context, sessionID string) (*model.RefundIntent, error) {
	return r.findOne(ctx, bson.M{"session_id": sessionID})
}

func (r *mongoRefundRepository) findOne(ctx context.Context, filter bson.M) (*model.RefundIntent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var intent model.RefundIntent
	err := r.collection.FindOne(ctx, filter).Decode(&intent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find refund intent: %w", err)
	}
	return &intent, nil
}

func (r *mongoRefundRepository) MarkInitiated(ctx context.Context, id string, gatewayRefundID string) (*model.RefundIntent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": model.RefundStatusFailedPendingManual}
	update := bson.M{
		"$set": bson.M{
			"status":            model.RefundStatusInitiated,
			"gateway_refund_id": gatewayRefundID,
			"updated_at":        time.Now().UTC(),
		},
		"$inc":   bson.M{"attempts": 1},
		"$unset": bson.M{"last_error": ""},
	}
	return r.findOneAndUpdate(ctx, filter, update, "failed to mark refund initiated")
}

func (r *mongoRefundRepository) RecordFailure(ctx context.Context, id string, lastError string) (*model.RefundIntent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": model.RefundStatusFailedPendingManual}
	update := bson.M{
		"$set": bson.M{
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"attempts": 1},
	}
	return r.findOneAndUpdate(ctx, filter, update, "failed to record refund failure")
}

func (r *mongoRefundRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M, msg string) (*model.RefundIntent, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var intent model.RefundIntent
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&intent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAlreadySettled
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	return &intent, nil
}

// FindRetryable returns unsettled intents that still have attempts left,
// oldest first.
func (r *mongoRefundRepository) FindRetryable(ctx context.Context, maxAttempts int, limit int) ([]*model.RefundIntent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":   model.RefundStatusFailedPendingManual,
		"attempts": bson.M{"$lt": maxAttempts},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find retryable refunds: %w", err)
	}
	defer cursor.Close(ctx)

	var intents []*model.RefundIntent
	if err = cursor.All(ctx, &intents); err != nil {
		return nil, fmt.Errorf("failed to decode refund intents: %w", err)
	}
	return intents, nil
}
