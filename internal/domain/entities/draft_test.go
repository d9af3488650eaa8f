package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func amountPtr(s string) *Amount {
	a := MustAmount(s)
	return &a
}

func TestConversationState(t *testing.T) {
	var nilConv *Conversation
	assert.Equal(t, StateNoConversation, nilConv.State())

	c := &Conversation{Status: StatusActive}
	assert.Equal(t, StateIntentPending, c.State())

	c.Intent = IntentSale
	assert.Equal(t, StateSlotFilling, c.State())

	c.Data.Ready = true
	assert.Equal(t, StateReadyForConfirmation, c.State())

	c.Status = StatusCompleted
	assert.Equal(t, StateCommitted, c.State())

	c.Status = StatusCancelled
	assert.Equal(t, StateCancelled, c.State())
}

func TestSaleDraft_Missing(t *testing.T) {
	d := &SaleDraft{
		Products: []ProductLine{{Name: "agua", Quantity: MustAmount("2"), UnitPrice: MustAmount("1")}},
		Customer: "Juan",
		Total:    amountPtr("2"),
	}
	assert.Equal(t, []string{"payment_method", "paid"}, d.Missing())

	d.PaymentMethod = PaymentCash
	d.Paid = boolPtr(true)
	assert.Empty(t, d.Missing())
	assert.Empty(t, d.Inconsistency())
	assert.True(t, d.HasCustomer())
}

func TestSaleDraft_Inconsistency(t *testing.T) {
	d := &SaleDraft{
		Products: []ProductLine{
			{Name: "agua", Quantity: MustAmount("2"), UnitPrice: MustAmount("1.50")},
			{Name: "pan", Quantity: MustAmount("1"), UnitPrice: MustAmount("0.75")},
		},
		Total: amountPtr("5"),
	}
	assert.NotEmpty(t, d.Inconsistency())

	d.Total = amountPtr("3.75")
	assert.Empty(t, d.Inconsistency())

	// without prices the total cannot be cross-checked
	d.Products[1].UnitPrice = Amount{}
	d.Total = amountPtr("99")
	assert.Empty(t, d.Inconsistency())
}

func TestSaleDraft_NoneCustomer(t *testing.T) {
	d := &SaleDraft{Customer: "None"}
	assert.False(t, d.HasCustomer())
}

func TestExpenseDraft_Missing(t *testing.T) {
	d := &ExpenseDraft{Concept: "luz", Amount: amountPtr("50"), Category: "utilities"}
	assert.Equal(t, []string{"supplier", "category", "payment_method", "paid"}, d.Missing())

	d.Supplier = CounterpartyNone
	d.Category = CategoryServices
	d.PaymentMethod = PaymentCash
	d.Paid = boolPtr(true)
	assert.Empty(t, d.Missing())
	assert.False(t, d.HasSupplier())
}

func TestSaleDraft_DecodesExtractorJSON(t *testing.T) {
	raw := `{"products":[{"name":"agua","quantity":2,"unit_price":"1"}],"customer":"Juan","total":2}`

	var d SaleDraft
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	require.Len(t, d.Products, 1)
	assert.True(t, d.Products[0].Quantity.Equal(MustAmount("2").Decimal))
	require.NotNil(t, d.Total)
	assert.Equal(t, "2.00", d.Total.Money())
	assert.Nil(t, d.Paid)
}
