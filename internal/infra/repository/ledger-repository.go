package repository

import (
	"context"
	"fmt"

	"barrio-connector/internal/domain/entities"
	ports "barrio-connector/internal/domain/interfaces/repository"
	repocontants "barrio-connector/internal/domain/interfaces/repository/contants"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	_ ports.ILedger[entities.Sale]    = (*Ledger[entities.Sale])(nil)
	_ ports.ILedger[entities.Expense] = (*Ledger[entities.Expense])(nil)
	_ ports.IDebtLedger               = (*DebtLedger)(nil)
)

// Ledger stores committed records that carry a commit_key.
type Ledger[T any] struct {
	base *MongoRepository[T]
	name string
}

func NewSalesLedger(db *mongo.Database) *Ledger[entities.Sale] {
	return &Ledger[entities.Sale]{base: NewMongoRepository[entities.Sale](db, repocontants.SALE_COLLECTION), name: "sale"}
}

func NewExpenseLedger(db *mongo.Database) *Ledger[entities.Expense] {
	return &Ledger[entities.Expense]{base: NewMongoRepository[entities.Expense](db, repocontants.EXPENSE_COLLECTION), name: "expense"}
}

func (l *Ledger[T]) Insert(ctx context.Context, record *T) error {
	if err := l.base.Create(ctx, record); err != nil {
		return fmt.Errorf("insert %s: %w", l.name, err)
	}
	return nil
}

func (l *Ledger[T]) FindByCommitKey(ctx context.Context, storeID, commitKey string) (*T, error) {
	return l.base.FindOne(ctx, bson.M{"store_id": storeID, "commit_key": commitKey})
}

type DebtLedger struct {
	base *MongoRepository[entities.Debt]
}

func NewDebtLedger(db *mongo.Database) *DebtLedger {
	return &DebtLedger{base: NewMongoRepository[entities.Debt](db, repocontants.DEBT_COLLECTION)}
}

func (l *DebtLedger) Insert(ctx context.Context, debt *entities.Debt) error {
	if err := l.base.Create(ctx, debt); err != nil {
		return fmt.Errorf("insert debt: %w", err)
	}
	return nil
}
