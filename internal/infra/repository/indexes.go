package repository

import (
	"context"
	"fmt"

	repocontants "barrio-connector/internal/domain/interfaces/repository/contants"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func commitKeyIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "store_id", Value: 1}, {Key: "commit_key", Value: 1}},
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"commit_key": bson.M{"$exists": true}}),
	}
}

// EnsureIndexes creates the indexes the conversation engine relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	models := map[string][]mongo.IndexModel{
		repocontants.CONVERSATION_COLLECTION: {{
			Keys: bson.D{
				{Key: "user_phone", Value: 1},
				{Key: "store_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "last_message_at", Value: -1},
			},
		}},
		repocontants.SALE_COLLECTION:     {commitKeyIndex()},
		repocontants.EXPENSE_COLLECTION:  {commitKeyIndex()},
		repocontants.DEBT_COLLECTION:     {commitKeyIndex()},
		repocontants.PRODUCT_COLLECTION:  {{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "name", Value: 1}}}},
		repocontants.CUSTOMER_COLLECTION: {{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "name", Value: 1}}}},
		repocontants.SUPPLIER_COLLECTION: {{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "name", Value: 1}}}},
		repocontants.USER_COLLECTION:     {{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)}},
	}

	for collection, indexes := range models {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
