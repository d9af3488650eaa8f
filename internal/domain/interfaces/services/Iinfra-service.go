package Iservices

import (
	"context"

	"barrio-connector/internal/domain/dto"
)

// ILocker serializes work per key. The returned func releases the lock.
type ILocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type IEventPublisher interface {
	PublishCommitted(ctx context.Context, event dto.TransactionCommittedEvent) error
}
