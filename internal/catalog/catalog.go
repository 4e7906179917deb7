// Package catalog is the authoritative source of service unit prices.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"petsit/pkg/config"
	mongotx "petsit/pkg/db/mongo"
	"petsit/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Services"

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrServiceInactive = errors.New("service is not bookable")
)

type Catalog interface {
	GetServicePrice(ctx context.Context, serviceID string) (int64, error)
}

type mongoCatalog struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCatalog(cfg *config.Config) Catalog {
	return &mongoCatalog{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (c *mongoCatalog) GetServicePrice(ctx context.Context, serviceID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()

	var service model.Service
	err := c.collection.FindOne(ctx, bson.M{"_id": serviceID}).Decode(&service)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrServiceNotFound
		}
		return 0, fmt.Errorf("failed to load service: %w", err)
	}

	if !service.Active {
		return 0, ErrServiceInactive
	}
	if service.PriceMinor <= 0 {
		return 0, fmt.Errorf("service %s has no valid price", serviceID)
	}

	return service.PriceMinor, nil
}
