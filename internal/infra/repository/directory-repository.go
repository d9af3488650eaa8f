package repository

import (
	"context"
	"regexp"
	"strings"

	"barrio-connector/internal/domain/entities"
	ports "barrio-connector/internal/domain/interfaces/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ ports.ICounterpartyDirectory = (*CounterpartyDirectory)(nil)

// CounterpartyDirectory serves either the customers or the suppliers collection.
type CounterpartyDirectory struct {
	base *MongoRepository[entities.Counterparty]
}

func NewCounterpartyDirectory(db *mongo.Database, collectionName string) *CounterpartyDirectory {
	return &CounterpartyDirectory{base: NewMongoRepository[entities.Counterparty](db, collectionName)}
}

// nameContainsFilter matches stored names containing name, case-insensitively.
func nameContainsFilter(storeID, name string) bson.M {
	return bson.M{
		"store_id": storeID,
		"name":     primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(name)), Options: "i"},
	}
}

func (d *CounterpartyDirectory) ResolveByName(ctx context.Context, storeID, name string) (*entities.Counterparty, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ports.ErrNotFound
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	return d.base.FindOne(ctx, nameContainsFilter(storeID, name), opts)
}

func (d *CounterpartyDirectory) List(ctx context.Context, storeID string, limit int64) ([]entities.Counterparty, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(limit)
	return d.base.FindAll(ctx, bson.M{"store_id": storeID}, opts)
}
