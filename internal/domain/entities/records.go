package entities

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID       primitive.ObjectID `json:"id" bson:"_id"`
	StoreID  string             `json:"store_id" bson:"store_id"`
	Name     string             `json:"name" bson:"name"`
	Price    Amount             `json:"price" bson:"price"`
	Quantity Amount             `json:"quantity" bson:"quantity"`
}

// Counterparty is a customer or a supplier of a store.
type Counterparty struct {
	ID      primitive.ObjectID `json:"id" bson:"_id"`
	StoreID string             `json:"store_id" bson:"store_id"`
	Name    string             `json:"name" bson:"name"`
	Phone   string             `json:"phone,omitempty" bson:"phone,omitempty"`
}

// StoreUser links a WhatsApp sender to the store it operates.
type StoreUser struct {
	ID      primitive.ObjectID `json:"id" bson:"_id"`
	Phone   string             `json:"phone" bson:"phone"`
	StoreID string             `json:"store_id" bson:"store_id"`
	Name    string             `json:"name" bson:"name"`
}

type SaleLine struct {
	ProductID *primitive.ObjectID `json:"product_id,omitempty" bson:"product_id,omitempty"`
	Name      string              `json:"name" bson:"name"`
	Quantity  Amount              `json:"quantity" bson:"quantity"`
	UnitPrice Amount              `json:"unit_price" bson:"unit_price"`
	Subtotal  Amount              `json:"subtotal" bson:"subtotal"`
}

type Sale struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id"`
	StoreID       string              `json:"store_id" bson:"store_id"`
	Products      []SaleLine          `json:"products" bson:"products"`
	CustomerID    *primitive.ObjectID `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	CustomerName  string              `json:"customer_name" bson:"customer_name"`
	PaymentMethod PaymentMethod       `json:"payment_method" bson:"payment_method"`
	Paid          bool                `json:"paid" bson:"paid"`
	Total         Amount              `json:"total" bson:"total"`
	CommitKey     string              `json:"-" bson:"commit_key,omitempty"`
	Source        string              `json:"source" bson:"source"`
	CreatedBy     string              `json:"created_by" bson:"created_by"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
}

type Expense struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id"`
	StoreID       string              `json:"store_id" bson:"store_id"`
	Concept       string              `json:"concept" bson:"concept"`
	Amount        Amount              `json:"amount" bson:"amount"`
	SupplierID    *primitive.ObjectID `json:"supplier_id,omitempty" bson:"supplier_id,omitempty"`
	SupplierName  string              `json:"supplier_name" bson:"supplier_name"`
	Category      ExpenseCategory     `json:"category" bson:"category"`
	PaymentMethod PaymentMethod       `json:"payment_method" bson:"payment_method"`
	Paid          bool                `json:"paid" bson:"paid"`
	CommitKey     string              `json:"-" bson:"commit_key,omitempty"`
	Source        string              `json:"source" bson:"source"`
	CreatedBy     string              `json:"created_by" bson:"created_by"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
}

type DebtKind string

const (
	// DebtReceivable is owed to the store by a customer.
	DebtReceivable DebtKind = "receivable"
	// DebtPayable is owed by the store to a supplier.
	DebtPayable DebtKind = "payable"
)

type Debt struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id"`
	StoreID          string              `json:"store_id" bson:"store_id"`
	Kind             DebtKind            `json:"kind" bson:"kind"`
	CounterpartyID   primitive.ObjectID  `json:"counterparty_id" bson:"counterparty_id"`
	CounterpartyName string              `json:"counterparty_name" bson:"counterparty_name"`
	Amount           Amount              `json:"amount" bson:"amount"`
	SaleID           *primitive.ObjectID `json:"sale_id,omitempty" bson:"sale_id,omitempty"`
	ExpenseID        *primitive.ObjectID `json:"expense_id,omitempty" bson:"expense_id,omitempty"`
	CommitKey        string              `json:"-" bson:"commit_key,omitempty"`
	Settled          bool                `json:"settled" bson:"settled"`
	CreatedAt        time.Time           `json:"created_at" bson:"created_at"`
}
