// Package settings reads operator-tunable policy from the Settings collection.
package settings

import (
	"context"
	"errors"
	"fmt"

	"petsit/pkg/config"
	mongotx "petsit/pkg/db/mongo"
	"petsit/pkg/logger"
	"petsit/pkg/model"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Settings"

type RefundPolicy interface {
	DeductionPercent(ctx context.Context) (decimal.Decimal, error)
}

type mongoRefundPolicy struct {
	cfg        *config.Config
	collection *mongo.Collection
	fallback   decimal.Decimal
	log        *logger.Logger
}

// NewMongoRefundPolicy reads the deduction on every call so operator changes
// apply without a restart. REFUND_DEDUCTION_PERCENT is used when no document
// exists.
func NewMongoRefundPolicy(cfg *config.Config) RefundPolicy {
	return &mongoRefundPolicy{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
		fallback:   cfg.RefundDeductionPercent,
		log:        cfg.Log,
	}
}

func (p *mongoRefundPolicy) DeductionPercent(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, p.cfg.ReadTimeout)
	defer cancel()

	var doc model.RefundPolicySettings
	err := p.collection.FindOne(ctx, bson.M{"_id": model.RefundPolicySettingsID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return p.fallback, nil
		}
		return decimal.Zero, fmt.Errorf("failed to load refund policy: %w", err)
	}

	pct, err := decimal.NewFromString(doc.DeductionPercent)
	if err != nil || pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		p.log.Warn("Ignoring invalid refund deduction setting", "value", doc.DeductionPercent)
		return p.fallback, nil
	}

	return pct, nil
}

// StaticRefundPolicy always returns the same percentage.
type StaticRefundPolicy decimal.Decimal

func (s StaticRefundPolicy) DeductionPercent(context.Context) (decimal.Decimal, error) {
	return decimal.Decimal(s), nil
}
