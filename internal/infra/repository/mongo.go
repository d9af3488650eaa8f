package repository

import (
	"context"
	"errors"

	ports "barrio-connector/internal/domain/interfaces/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository[T any] struct {
	collection *mongo.Collection
}

func NewMongoRepository[T any](db *mongo.Database, collectionName string) *MongoRepository[T] {
	return &MongoRepository[T]{collection: db.Collection(collectionName)}
}

func (r *MongoRepository[T]) Create(ctx context.Context, entity *T) error {
	_, err := r.collection.InsertOne(ctx, entity)
	if mongo.IsDuplicateKeyError(err) {
		return ports.ErrDuplicate
	}
	return err
}

func (r *MongoRepository[T]) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*T, error) {
	var entity T
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *MongoRepository[T]) FindAll(ctx context.Context, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entities := []T{}
	for cursor.Next(ctx) {
		var entity T
		if err := cursor.Decode(&entity); err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, cursor.Err()
}

// UpdateOne applies update to the first match and reports how many documents matched.
func (r *MongoRepository[T]) UpdateOne(ctx context.Context, filter, update any) (int64, error) {
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}
