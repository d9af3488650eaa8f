package repository

import (
	"context"
	"fmt"

	"barrio-connector/internal/domain/entities"
	ports "barrio-connector/internal/domain/interfaces/repository"
	repocontants "barrio-connector/internal/domain/interfaces/repository/contants"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const catalogListLimit = 200

var _ ports.IProductCatalog = (*ProductCatalog)(nil)

type ProductCatalog struct {
	base *MongoRepository[entities.Product]
}

func NewProductCatalog(db *mongo.Database) *ProductCatalog {
	return &ProductCatalog{base: NewMongoRepository[entities.Product](db, repocontants.PRODUCT_COLLECTION)}
}

func (c *ProductCatalog) ListProducts(ctx context.Context, storeID string) ([]entities.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(catalogListLimit)
	return c.base.FindAll(ctx, bson.M{"store_id": storeID}, opts)
}

func (c *ProductCatalog) FindByID(ctx context.Context, storeID string, productID primitive.ObjectID) (*entities.Product, error) {
	return c.base.FindOne(ctx, bson.M{"_id": productID, "store_id": storeID})
}

// DecrementQuantity lowers stock without a floor; negative stock is allowed.
func (c *ProductCatalog) DecrementQuantity(ctx context.Context, storeID string, productID primitive.ObjectID, amount entities.Amount) error {
	update := bson.M{"$inc": bson.M{"quantity": entities.NewAmount(amount.Neg())}}
	matched, err := c.base.UpdateOne(ctx, bson.M{"_id": productID, "store_id": storeID}, update)
	if err != nil {
		return fmt.Errorf("decrement product %s: %w", productID.Hex(), err)
	}
	if matched == 0 {
		return ports.ErrNotFound
	}
	return nil
}
