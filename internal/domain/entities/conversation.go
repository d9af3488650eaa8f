package entities

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusCompleted ConversationStatus = "completed"
	StatusCancelled ConversationStatus = "cancelled"
)

type Intent string

const (
	IntentNone    Intent = ""
	IntentSale    Intent = "sale"
	IntentExpense Intent = "expense"
)

// ConversationState is derived from the stored record, never persisted.
type ConversationState string

const (
	StateNoConversation       ConversationState = "NO_CONVERSATION"
	StateIntentPending        ConversationState = "INTENT_PENDING"
	StateSlotFilling          ConversationState = "SLOT_FILLING"
	StateReadyForConfirmation ConversationState = "READY_FOR_CONFIRMATION"
	StateCommitted            ConversationState = "COMMITTED"
	StateCancelled            ConversationState = "CANCELLED"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Conversation is one negotiation between a sender and a store. At most one
// fresh active conversation exists per (UserPhone, StoreID).
type Conversation struct {
	ID            primitive.ObjectID `json:"id" bson:"_id"`
	UserPhone     string             `json:"user_phone" bson:"user_phone"`
	StoreID       string             `json:"store_id" bson:"store_id"`
	Status        ConversationStatus `json:"status" bson:"status"`
	Intent        Intent             `json:"intent,omitempty" bson:"intent,omitempty"`
	Data          Draft              `json:"data" bson:"data"`
	Messages      []Message          `json:"messages" bson:"messages"`
	Version       int64              `json:"version" bson:"version"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	LastMessageAt time.Time          `json:"last_message_at" bson:"last_message_at"`
}

func NewConversation(userPhone, storeID string, now time.Time) *Conversation {
	return &Conversation{
		ID:            primitive.NewObjectID(),
		UserPhone:     userPhone,
		StoreID:       storeID,
		Status:        StatusActive,
		Messages:      []Message{},
		CreatedAt:     now,
		LastMessageAt: now,
	}
}

func (c *Conversation) State() ConversationState {
	if c == nil {
		return StateNoConversation
	}
	switch c.Status {
	case StatusCompleted:
		return StateCommitted
	case StatusCancelled:
		return StateCancelled
	}
	if c.Intent == IntentNone {
		return StateIntentPending
	}
	if c.Data.Ready {
		return StateReadyForConfirmation
	}
	return StateSlotFilling
}

func (c *Conversation) AppendMessage(role Role, content string, at time.Time) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content, Timestamp: at})
	c.LastMessageAt = at
}
