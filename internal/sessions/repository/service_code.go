package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sessionserrors "petsit/internal/sessions/errors"
	"petsit/pkg/config"
	mongotx "petsit/pkg/db/mongo"
	"petsit/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CodesCollectionName = "Service_codes"
)

type CodeRepository interface {
	CreateMany(ctx context.Context, codes []*model.ServiceCode) error
	FindBySessionAndType(ctx context.Context, sessionID, codeType string) (*model.ServiceCode, error)
	FindBySession(ctx context.Context, sessionID string) ([]*model.ServiceCode, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
}

type mongoCodeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCodeRepository(cfg *config.Config) CodeRepository {
	return &mongoCodeRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CodesCollectionName),
	}
}

func (r *mongoCodeRepository) CreateMany(ctx context.Context, codes []*model.ServiceCode) error {
	if len(codes) == 0 {
		return nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	docs := make([]any, len(codes))
	for i, c := range codes {
		docs[i] = c
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create service codes: %w", err)
	}
	return nil
}

func (r *mongoCodeRepository) FindBySessionAndType(ctx context.Context, sessionID, codeType string) (*model.ServiceCode, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var code model.ServiceCode
	err := r.collection.FindOne(ctx, bson.M{"session_id": sessionID, "type": codeType}).Decode(&code)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionserrors.ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to find service code: %w", err)
	}

	return &code, nil
}

func (r *mongoCodeRepository) FindBySession(ctx context.Context, sessionID string) ([]*model.ServiceCode, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "type", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find service codes: %w", err)
	}
	defer cursor.Close(ctx)

	var codes []*model.ServiceCode
	if err = cursor.All(ctx, &codes); err != nil {
		return nil, fmt.Errorf("failed to decode service codes: %w", err)
	}
	return codes, nil
}

// MarkUsed flips used from false to true. Only one caller can win; the rest
// get ErrCodeAlreadyUsed.
func (r *mongoCodeRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "used": false}
	update := bson.M{"$set": bson.M{"used": true, "used_at": at}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark service code used: %w", err)
	}
	if result.MatchedCount == 0 {
		return sessionserrors.ErrCodeAlreadyUsed
	}
	return nil
}
