package repository

import (
	"context"

	"barrio-connector/internal/domain/entities"
	ports "barrio-connector/internal/domain/interfaces/repository"
	repocontants "barrio-connector/internal/domain/interfaces/repository/contants"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ ports.IStoreUserRepository = (*StoreUserRepository)(nil)

type StoreUserRepository struct {
	base *MongoRepository[entities.StoreUser]
}

func NewStoreUserRepository(db *mongo.Database) *StoreUserRepository {
	return &StoreUserRepository{base: NewMongoRepository[entities.StoreUser](db, repocontants.USER_COLLECTION)}
}

func (r *StoreUserRepository) FindByPhone(ctx context.Context, phone string) (*entities.StoreUser, error) {
	return r.base.FindOne(ctx, bson.M{"phone": phone})
}
