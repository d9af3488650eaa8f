package repository

import (
	"context"
	"errors"
	"time"

	"barrio-connector/internal/domain/entities"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("conversation was modified concurrently")
	ErrDuplicate       = errors.New("record already exists")
)

type IConversationRepository interface {
	// FindActive returns the newest active conversation for the key whose last
	// message is not older than since, or ErrNotFound.
	FindActive(ctx context.Context, userPhone, storeID string, since time.Time) (*entities.Conversation, error)
	Create(ctx context.Context, conv *entities.Conversation) error
	// Save replaces status, intent, data, messages and last_message_at when the stored
	// version still equals conv.Version, then bumps conv.Version.
	Save(ctx context.Context, conv *entities.Conversation) error
	// UpdateStatus is a compare-and-swap on the version like Save.
	UpdateStatus(ctx context.Context, conv *entities.Conversation, status entities.ConversationStatus) error
}

type IProductCatalog interface {
	ListProducts(ctx context.Context, storeID string) ([]entities.Product, error)
	FindByID(ctx context.Context, storeID string, productID primitive.ObjectID) (*entities.Product, error)
	DecrementQuantity(ctx context.Context, storeID string, productID primitive.ObjectID, amount entities.Amount) error
}

// ICounterpartyDirectory resolves customers or suppliers of a store.
type ICounterpartyDirectory interface {
	// ResolveByName returns the first counterparty whose name contains name,
	// ignoring case, or ErrNotFound.
	ResolveByName(ctx context.Context, storeID, name string) (*entities.Counterparty, error)
	List(ctx context.Context, storeID string, limit int64) ([]entities.Counterparty, error)
}

type ILedger[T any] interface {
	// Insert returns ErrDuplicate when the commit key was already used.
	Insert(ctx context.Context, record *T) error
	FindByCommitKey(ctx context.Context, storeID, commitKey string) (*T, error)
}

type IDebtLedger interface {
	// Insert returns ErrDuplicate when a debt with the same commit key exists.
	Insert(ctx context.Context, debt *entities.Debt) error
}

type IStoreUserRepository interface {
	FindByPhone(ctx context.Context, phone string) (*entities.StoreUser, error)
}
