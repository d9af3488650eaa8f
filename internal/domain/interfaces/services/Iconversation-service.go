package Iservices

import (
	"context"

	"barrio-connector/internal/domain/dto"
	"barrio-connector/internal/domain/entities"
)

type IIntentClassifier interface {
	Classify(utterance string) entities.Intent
}

// IConversationEngine runs one turn and always yields a reply.
type IConversationEngine interface {
	ProcessMessage(ctx context.Context, userPhone, storeID, utterance string) string
}

type CommitResult struct {
	Success bool
	Message string
}

// ITransactionCommitter turns a ready conversation into domain records. A
// non-nil error means some writes may already have landed.
type ITransactionCommitter interface {
	Commit(ctx context.Context, conv *entities.Conversation) (CommitResult, error)
}

// IChannelService adapts provider webhooks to the conversation engine.
type IChannelService interface {
	// Converse resolves the sender's store and runs one turn.
	Converse(ctx context.Context, senderPhone, utterance string) string
	// HandleInbound runs one turn and delivers the reply through the provider.
	HandleInbound(ctx context.Context, senderPhone, utterance string)
	WebhookService(ctx context.Context, webhookDto *dto.InboundResponse)
}
