package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"barrio-connector/internal/domain/dto"
	"barrio-connector/internal/domain/entities"
	ports "barrio-connector/internal/domain/interfaces/repository"
	Iservices "barrio-connector/internal/domain/interfaces/services"
	"barrio-connector/internal/infra/logger"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ Iservices.ITransactionCommitter = (*TransactionCommitter)(nil)

const recordSource = "whatsapp"

// TransactionCommitter writes the records of a confirmed draft. Writes run in
// a fixed order (ledger, inventory, debt) without a multi-document
// transaction. The ledger insert claims the commit key first, so a repeated
// commit of the same conversation never moves stock again; it only completes
// a debt that a failed attempt left out.
type TransactionCommitter struct {
	Logger    *logger.Logger
	Catalog   ports.IProductCatalog
	Customers ports.ICounterpartyDirectory
	Suppliers ports.ICounterpartyDirectory
	Sales     ports.ILedger[entities.Sale]
	Expenses  ports.ILedger[entities.Expense]
	Debts     ports.IDebtLedger
	Publisher Iservices.IEventPublisher
	Now       func() time.Time
}

func NewTransactionCommitter(
	logger *logger.Logger,
	catalog ports.IProductCatalog,
	customers, suppliers ports.ICounterpartyDirectory,
	sales ports.ILedger[entities.Sale],
	expenses ports.ILedger[entities.Expense],
	debts ports.IDebtLedger,
	publisher Iservices.IEventPublisher,
) *TransactionCommitter {
	return &TransactionCommitter{
		Logger:    logger,
		Catalog:   catalog,
		Customers: customers,
		Suppliers: suppliers,
		Sales:     sales,
		Expenses:  expenses,
		Debts:     debts,
		Publisher: publisher,
		Now:       time.Now,
	}
}

// CommitKey identifies the single record a conversation may produce.
func CommitKey(conv *entities.Conversation) string {
	sum := sha256.Sum256([]byte(conv.ID.Hex() + ":" + string(conv.Intent)))
	return hex.EncodeToString(sum[:])
}

func (cs *TransactionCommitter) Commit(ctx context.Context, conv *entities.Conversation) (Iservices.CommitResult, error) {
	switch conv.Intent {
	case entities.IntentSale:
		return cs.commitSale(ctx, conv)
	case entities.IntentExpense:
		return cs.commitExpense(ctx, conv)
	}
	return missingData("el tipo de registro"), nil
}

func (cs *TransactionCommitter) commitSale(ctx context.Context, conv *entities.Conversation) (Iservices.CommitResult, error) {
	draft := conv.Data.Sale
	if draft == nil || len(draft.Products) == 0 {
		return missingData("los productos"), nil
	}
	if draft.Total == nil || !draft.Total.IsPositive() {
		return missingData("el total"), nil
	}

	fields := logrus.Fields{"conversation_id": conv.ID.Hex(), "store_id": conv.StoreID, "intent": conv.Intent}
	key := CommitKey(conv)

	var customer *entities.Counterparty
	var err error
	if draft.HasCustomer() {
		customer, err = resolveCounterparty(ctx, cs.Customers, conv.StoreID, draft.Customer)
		if err != nil {
			return Iservices.CommitResult{}, fmt.Errorf("resolve customer: %w", err)
		}
	}

	existing, err := cs.Sales.FindByCommitKey(ctx, conv.StoreID, key)
	if err == nil {
		cs.Logger.Info("Sale already committed for conversation", fields)
		debt, err := cs.ensureDebt(ctx, receivable(existing, customer, key))
		if err != nil {
			return Iservices.CommitResult{}, err
		}
		return Iservices.CommitResult{Success: true, Message: saleMessage(existing, debt)}, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return Iservices.CommitResult{}, fmt.Errorf("look up sale commit key: %w", err)
	}

	sale := &entities.Sale{
		ID:            primitive.NewObjectID(),
		StoreID:       conv.StoreID,
		Products:      make([]entities.SaleLine, 0, len(draft.Products)),
		CustomerName:  counterpartyName(draft.Customer),
		PaymentMethod: draft.PaymentMethod,
		Paid:          draft.Paid == nil || *draft.Paid,
		Total:         *draft.Total,
		CommitKey:     key,
		Source:        recordSource,
		CreatedBy:     conv.UserPhone,
		CreatedAt:     cs.Now(),
	}
	if customer != nil {
		sale.CustomerID = &customer.ID
	}

	for _, line := range draft.Products {
		saleLine := entities.SaleLine{
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  entities.NewAmount(line.Subtotal()),
		}
		productID, err := cs.resolveProduct(ctx, conv.StoreID, line.ProductID, fields)
		if err != nil {
			return Iservices.CommitResult{}, err
		}
		saleLine.ProductID = productID
		sale.Products = append(sale.Products, saleLine)
	}

	// The ledger insert claims the commit key; side effects only follow a won claim.
	if err := cs.Sales.Insert(ctx, sale); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			cs.Logger.Warn("Sale commit key already used by a concurrent commit", fields)
			return Iservices.CommitResult{Success: true, Message: saleMessage(sale, nil)}, nil
		}
		return Iservices.CommitResult{}, fmt.Errorf("insert sale: %w", err)
	}

	for _, line := range sale.Products {
		if line.ProductID == nil {
			continue
		}
		if err := cs.Catalog.DecrementQuantity(ctx, conv.StoreID, *line.ProductID, line.Quantity); err != nil {
			if !errors.Is(err, ports.ErrNotFound) {
				return Iservices.CommitResult{}, fmt.Errorf("decrement inventory of sale %s: %w", sale.ID.Hex(), err)
			}
			cs.Logger.Warn(fmt.Sprintf("Product %s disappeared before its stock was updated", line.ProductID.Hex()), fields)
		}
	}

	debt, err := cs.ensureDebt(ctx, receivable(sale, customer, key))
	if err != nil {
		return Iservices.CommitResult{}, err
	}

	cs.Logger.Info(fmt.Sprintf("Sale %s committed with total %s", sale.ID.Hex(), sale.Total.Money()), fields)
	cs.publish(ctx, conv, sale.ID, sale.Total, sale.Paid, debt)

	return Iservices.CommitResult{Success: true, Message: saleMessage(sale, debt)}, nil
}

func (cs *TransactionCommitter) commitExpense(ctx context.Context, conv *entities.Conversation) (Iservices.CommitResult, error) {
	draft := conv.Data.Expense
	if draft == nil || draft.Amount == nil || !draft.Amount.IsPositive() {
		return missingData("el monto"), nil
	}

	fields := logrus.Fields{"conversation_id": conv.ID.Hex(), "store_id": conv.StoreID, "intent": conv.Intent}
	key := CommitKey(conv)

	var supplier *entities.Counterparty
	var err error
	if draft.HasSupplier() {
		supplier, err = resolveCounterparty(ctx, cs.Suppliers, conv.StoreID, draft.Supplier)
		if err != nil {
			return Iservices.CommitResult{}, fmt.Errorf("resolve supplier: %w", err)
		}
	}

	existing, err := cs.Expenses.FindByCommitKey(ctx, conv.StoreID, key)
	if err == nil {
		cs.Logger.Info("Expense already committed for conversation", fields)
		debt, err := cs.ensureDebt(ctx, payable(existing, supplier, key))
		if err != nil {
			return Iservices.CommitResult{}, err
		}
		return Iservices.CommitResult{Success: true, Message: expenseMessage(existing, debt)}, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return Iservices.CommitResult{}, fmt.Errorf("look up expense commit key: %w", err)
	}

	category := draft.Category
	if !category.Valid() {
		category = entities.CategoryOther
	}

	expense := &entities.Expense{
		ID:            primitive.NewObjectID(),
		StoreID:       conv.StoreID,
		Concept:       strings.TrimSpace(draft.Concept),
		Amount:        *draft.Amount,
		SupplierName:  counterpartyName(draft.Supplier),
		Category:      category,
		PaymentMethod: draft.PaymentMethod,
		Paid:          draft.Paid == nil || *draft.Paid,
		CommitKey:     key,
		Source:        recordSource,
		CreatedBy:     conv.UserPhone,
		CreatedAt:     cs.Now(),
	}
	if supplier != nil {
		expense.SupplierID = &supplier.ID
	}

	if err := cs.Expenses.Insert(ctx, expense); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			cs.Logger.Warn("Expense commit key already used by a concurrent commit", fields)
			return Iservices.CommitResult{Success: true, Message: expenseMessage(expense, nil)}, nil
		}
		return Iservices.CommitResult{}, fmt.Errorf("insert expense: %w", err)
	}

	debt, err := cs.ensureDebt(ctx, payable(expense, supplier, key))
	if err != nil {
		return Iservices.CommitResult{}, err
	}

	cs.Logger.Info(fmt.Sprintf("Expense %s committed with amount %s", expense.ID.Hex(), expense.Amount.Money()), fields)
	cs.publish(ctx, conv, expense.ID, expense.Amount, expense.Paid, debt)

	return Iservices.CommitResult{Success: true, Message: expenseMessage(expense, debt)}, nil
}

// resolveProduct returns the catalog id of a line, or nil when the line
// carries no reference to an existing product of the store.
func (cs *TransactionCommitter) resolveProduct(ctx context.Context, storeID, ref string, fields logrus.Fields) (*primitive.ObjectID, error) {
	productID, ok := parseProductID(ref)
	if !ok {
		return nil, nil
	}
	product, err := cs.Catalog.FindByID(ctx, storeID, productID)
	if errors.Is(err, ports.ErrNotFound) {
		cs.Logger.Warn(fmt.Sprintf("Product %s not found, inventory left untouched", ref), fields)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up product %s: %w", ref, err)
	}
	return &product.ID, nil
}

// ensureDebt inserts debt unless it is nil. The debt carries the commit key,
// so repeating the call for the same conversation stores it once.
func (cs *TransactionCommitter) ensureDebt(ctx context.Context, debt *entities.Debt) (*entities.Debt, error) {
	if debt == nil {
		return nil, nil
	}
	if err := cs.Debts.Insert(ctx, debt); err != nil && !errors.Is(err, ports.ErrDuplicate) {
		return nil, fmt.Errorf("insert %s debt: %w", debt.Kind, err)
	}
	return debt, nil
}

func receivable(sale *entities.Sale, customer *entities.Counterparty, key string) *entities.Debt {
	if sale.Paid || customer == nil {
		return nil
	}
	return &entities.Debt{
		ID:               primitive.NewObjectID(),
		StoreID:          sale.StoreID,
		Kind:             entities.DebtReceivable,
		CounterpartyID:   customer.ID,
		CounterpartyName: customer.Name,
		Amount:           sale.Total,
		SaleID:           &sale.ID,
		CommitKey:        key,
		CreatedAt:        sale.CreatedAt,
	}
}

func payable(expense *entities.Expense, supplier *entities.Counterparty, key string) *entities.Debt {
	if expense.Paid || supplier == nil {
		return nil
	}
	return &entities.Debt{
		ID:               primitive.NewObjectID(),
		StoreID:          expense.StoreID,
		Kind:             entities.DebtPayable,
		CounterpartyID:   supplier.ID,
		CounterpartyName: supplier.Name,
		Amount:           expense.Amount,
		ExpenseID:        &expense.ID,
		CommitKey:        key,
		CreatedAt:        expense.CreatedAt,
	}
}

func (cs *TransactionCommitter) publish(ctx context.Context, conv *entities.Conversation, recordID primitive.ObjectID, amount entities.Amount, paid bool, debt *entities.Debt) {
	if cs.Publisher == nil {
		return
	}
	event := dto.TransactionCommittedEvent{
		Type:       dto.EventTransactionCommitted,
		StoreID:    conv.StoreID,
		UserPhone:  conv.UserPhone,
		Intent:     string(conv.Intent),
		RecordID:   recordID.Hex(),
		Amount:     amount.Money(),
		Paid:       paid,
		OccurredAt: cs.Now(),
	}
	if debt != nil {
		event.DebtID = debt.ID.Hex()
	}
	if err := cs.Publisher.PublishCommitted(ctx, event); err != nil {
		cs.Logger.Error(fmt.Sprintf("Failed to publish %s event: %v", event.Type, err), logrus.Fields{
			"conversation_id": conv.ID.Hex(),
			"record_id":       event.RecordID,
		})
	}
}

// resolveCounterparty returns nil when nobody in the directory matches name.
func resolveCounterparty(ctx context.Context, dir ports.ICounterpartyDirectory, storeID, name string) (*entities.Counterparty, error) {
	if dir == nil {
		return nil, nil
	}
	c, err := dir.ResolveByName(ctx, storeID, name)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

func parseProductID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func counterpartyName(name string) string {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, entities.CounterpartyNone) {
		return ""
	}
	return name
}

func missingData(what string) Iservices.CommitResult {
	return Iservices.CommitResult{Success: false, Message: fmt.Sprintf(ReplyCommitMissingData, what)}
}

var paymentLabels = map[entities.PaymentMethod]string{
	entities.PaymentCash:         "efectivo",
	entities.PaymentTransfer:     "transferencia",
	entities.PaymentCard:         "tarjeta",
	entities.PaymentOtherDigital: "otro medio digital",
}

func paymentLabel(p entities.PaymentMethod) string {
	if l, ok := paymentLabels[p]; ok {
		return l
	}
	return string(p)
}

func saleMessage(sale *entities.Sale, debt *entities.Debt) string {
	var sb strings.Builder
	units := decimal.Zero
	for _, l := range sale.Products {
		units = units.Add(l.Quantity.Decimal)
	}
	fmt.Fprintf(&sb, "✅ Venta registrada por $%s (%s productos", sale.Total.Money(), units.String())
	if sale.CustomerName != "" {
		fmt.Fprintf(&sb, ", cliente %s", sale.CustomerName)
	}
	fmt.Fprintf(&sb, ", pago en %s).", paymentLabel(sale.PaymentMethod))
	writeDebtNote(&sb, sale.Paid, sale.CustomerName, debt, "te debe")
	return sb.String()
}

func expenseMessage(expense *entities.Expense, debt *entities.Debt) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Gasto registrado: %s por $%s", expense.Concept, expense.Amount.Money())
	if expense.SupplierName != "" {
		fmt.Fprintf(&sb, ", proveedor %s", expense.SupplierName)
	}
	fmt.Fprintf(&sb, ", pago en %s.", paymentLabel(expense.PaymentMethod))
	writeDebtNote(&sb, expense.Paid, expense.SupplierName, debt, "le debes a")
	return sb.String()
}

func writeDebtNote(sb *strings.Builder, paid bool, name string, debt *entities.Debt, verb string) {
	switch {
	case paid:
		return
	case debt != nil && debt.Kind == entities.DebtReceivable:
		fmt.Fprintf(sb, "\nQuedó anotado que %s %s $%s.", debt.CounterpartyName, verb, debt.Amount.Money())
	case debt != nil:
		fmt.Fprintf(sb, "\nQuedó anotado que %s %s $%s.", verb, debt.CounterpartyName, debt.Amount.Money())
	case name != "":
		fmt.Fprintf(sb, "\nNo encontré a %s en tus contactos, así que no registré la deuda.", name)
	}
}
