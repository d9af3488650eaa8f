package repository

import (
	"context"
	"fmt"
	"time"

	"barrio-connector/internal/domain/entities"
	ports "barrio-connector/internal/domain/interfaces/repository"
	repocontants "barrio-connector/internal/domain/interfaces/repository/contants"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ ports.IConversationRepository = (*ConversationRepository)(nil)

type ConversationRepository struct {
	base *MongoRepository[entities.Conversation]
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{
		base: NewMongoRepository[entities.Conversation](db, repocontants.CONVERSATION_COLLECTION),
	}
}

func (r *ConversationRepository) FindActive(ctx context.Context, userPhone, storeID string, since time.Time) (*entities.Conversation, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	return r.base.FindOne(ctx, activeFilter(userPhone, storeID, since), opts)
}

func (r *ConversationRepository) Create(ctx context.Context, conv *entities.Conversation) error {
	if err := r.base.Create(ctx, conv); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepository) Save(ctx context.Context, conv *entities.Conversation) error {
	return r.compareAndSwap(ctx, conv, saveUpdate(conv))
}

func (r *ConversationRepository) UpdateStatus(ctx context.Context, conv *entities.Conversation, status entities.ConversationStatus) error {
	update := bson.M{
		"$set": bson.M{"status": status},
		"$inc": bson.M{"version": 1},
	}
	if err := r.compareAndSwap(ctx, conv, update); err != nil {
		return err
	}
	conv.Status = status
	return nil
}

func (r *ConversationRepository) compareAndSwap(ctx context.Context, conv *entities.Conversation, update bson.M) error {
	matched, err := r.base.UpdateOne(ctx, versionFilter(conv), update)
	if err != nil {
		return fmt.Errorf("update conversation %s: %w", conv.ID.Hex(), err)
	}
	if matched == 0 {
		return ports.ErrVersionConflict
	}
	conv.Version++
	return nil
}

// activeFilter selects fresh active conversations of a sender in a store.
func activeFilter(userPhone, storeID string, since time.Time) bson.M {
	return bson.M{
		"user_phone":      userPhone,
		"store_id":        storeID,
		"status":          entities.StatusActive,
		"last_message_at": bson.M{"$gte": since},
	}
}

// versionFilter only matches the document while it still has the version conv was read at.
func versionFilter(conv *entities.Conversation) bson.M {
	return bson.M{"_id": conv.ID, "version": conv.Version}
}

func saveUpdate(conv *entities.Conversation) bson.M {
	return bson.M{
		"$set": bson.M{
			"status":          conv.Status,
			"intent":          conv.Intent,
			"data":            conv.Data,
			"messages":        conv.Messages,
			"last_message_at": conv.LastMessageAt,
		},
		"$inc": bson.M{"version": 1},
	}
}
