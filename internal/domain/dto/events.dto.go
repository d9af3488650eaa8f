package dto

import "time"

const EventTransactionCommitted = "transaction.committed"

type TransactionCommittedEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	StoreID    string    `json:"store_id"`
	UserPhone  string    `json:"user_phone"`
	Intent     string    `json:"intent"`
	RecordID   string    `json:"record_id"`
	Amount     string    `json:"amount"`
	Paid       bool      `json:"paid"`
	DebtID     string    `json:"debt_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
