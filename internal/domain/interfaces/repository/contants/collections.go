package repocontants

const (
	CONVERSATION_COLLECTION = "whatsapp_conversations"
	PRODUCT_COLLECTION      = "products"
	CUSTOMER_COLLECTION     = "customers"
	SUPPLIER_COLLECTION     = "suppliers"
	SALE_COLLECTION         = "sales"
	EXPENSE_COLLECTION      = "expenses"
	DEBT_COLLECTION         = "debts"
	USER_COLLECTION         = "users"
)
