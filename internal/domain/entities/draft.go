package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentTransfer     PaymentMethod = "transfer"
	PaymentCard         PaymentMethod = "card"
	PaymentOtherDigital PaymentMethod = "other_digital"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentTransfer, PaymentCard, PaymentOtherDigital:
		return true
	}
	return false
}

type ExpenseCategory string

const (
	CategoryGoods    ExpenseCategory = "goods"
	CategoryServices ExpenseCategory = "services"
	CategoryPayroll  ExpenseCategory = "payroll"
	CategoryOther    ExpenseCategory = "other"
)

func (c ExpenseCategory) Valid() bool {
	switch c {
	case CategoryGoods, CategoryServices, CategoryPayroll, CategoryOther:
		return true
	}
	return false
}

// CounterpartyNone is the sentinel the extractor uses when the user states
// there is no customer or supplier.
const CounterpartyNone = "none"

// totalTolerance bounds the accepted gap between a sale total and its lines.
var totalTolerance = decimal.NewFromFloat(0.01)

// Draft holds the slot data of the conversation's intent. Exactly one of Sale
// or Expense is set once the intent is known.
type Draft struct {
	Sale    *SaleDraft    `json:"sale,omitempty" bson:"sale,omitempty"`
	Expense *ExpenseDraft `json:"expense,omitempty" bson:"expense,omitempty"`
	Ready   bool          `json:"ready" bson:"ready"`
}

func (d Draft) IsEmpty() bool {
	return d.Sale == nil && d.Expense == nil
}

type ProductLine struct {
	ProductID string `json:"product_id,omitempty" bson:"product_id,omitempty"`
	Name      string `json:"name" bson:"name"`
	Quantity  Amount `json:"quantity" bson:"quantity"`
	UnitPrice Amount `json:"unit_price" bson:"unit_price"`
}

func (l ProductLine) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice.Decimal)
}

type SaleDraft struct {
	Products      []ProductLine `json:"products" bson:"products"`
	Customer      string        `json:"customer,omitempty" bson:"customer,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	Paid          *bool         `json:"paid,omitempty" bson:"paid,omitempty"`
	Total         *Amount       `json:"total,omitempty" bson:"total,omitempty"`
}

// Missing lists the slots that still block confirmation.
func (s *SaleDraft) Missing() []string {
	var missing []string
	if len(s.Products) == 0 {
		missing = append(missing, "products")
	}
	if strings.TrimSpace(s.Customer) == "" {
		missing = append(missing, "customer")
	}
	if !s.PaymentMethod.Valid() {
		missing = append(missing, "payment_method")
	}
	if s.Paid == nil {
		missing = append(missing, "paid")
	}
	if s.Total == nil || s.Total.IsZero() {
		missing = append(missing, "total")
	}
	return missing
}

// LinesTotal sums line subtotals. ok is false when some line has no price,
// in which case the sum says nothing about the declared total.
func (s *SaleDraft) LinesTotal() (sum decimal.Decimal, ok bool) {
	sum = decimal.Zero
	for _, l := range s.Products {
		if !l.UnitPrice.IsPositive() {
			return sum, false
		}
		sum = sum.Add(l.Subtotal())
	}
	return sum, len(s.Products) > 0
}

// Inconsistency describes a mismatch between the total and the lines, or "".
func (s *SaleDraft) Inconsistency() string {
	if s.Total == nil {
		return ""
	}
	sum, ok := s.LinesTotal()
	if !ok {
		return ""
	}
	if sum.Sub(s.Total.Decimal).Abs().GreaterThan(totalTolerance) {
		return fmt.Sprintf("total %s does not match products %s", s.Total.Money(), sum.StringFixed(2))
	}
	return ""
}

func (s *SaleDraft) HasCustomer() bool {
	c := strings.TrimSpace(s.Customer)
	return c != "" && !strings.EqualFold(c, CounterpartyNone)
}

type ExpenseDraft struct {
	Concept       string          `json:"concept,omitempty" bson:"concept,omitempty"`
	Amount        *Amount         `json:"amount,omitempty" bson:"amount,omitempty"`
	Supplier      string          `json:"supplier,omitempty" bson:"supplier,omitempty"`
	Category      ExpenseCategory `json:"category,omitempty" bson:"category,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	Paid          *bool           `json:"paid,omitempty" bson:"paid,omitempty"`
}

func (e *ExpenseDraft) Missing() []string {
	var missing []string
	if strings.TrimSpace(e.Concept) == "" {
		missing = append(missing, "concept")
	}
	if e.Amount == nil || e.Amount.IsZero() {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(e.Supplier) == "" {
		missing = append(missing, "supplier")
	}
	if !e.Category.Valid() {
		missing = append(missing, "category")
	}
	if !e.PaymentMethod.Valid() {
		missing = append(missing, "payment_method")
	}
	if e.Paid == nil {
		missing = append(missing, "paid")
	}
	return missing
}

func (e *ExpenseDraft) HasSupplier() bool {
	s := strings.TrimSpace(e.Supplier)
	return s != "" && !strings.EqualFold(s, CounterpartyNone)
}
