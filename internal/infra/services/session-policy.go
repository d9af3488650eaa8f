package services

import (
	"time"

	"barrio-connector/internal/domain/entities"
)

// SessionPolicy decides when a conversation is too old to resume. Freshness
// is only evaluated when the next message arrives; stale conversations are
// left untouched in storage.
type SessionPolicy struct {
	Timeout time.Duration
}

func NewSessionPolicy(timeout time.Duration) *SessionPolicy {
	return &SessionPolicy{Timeout: timeout}
}

// Cutoff is the oldest last_message_at still considered fresh at now.
func (p *SessionPolicy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.Timeout)
}

func (p *SessionPolicy) IsFresh(conv *entities.Conversation, now time.Time) bool {
	return conv != nil && !conv.LastMessageAt.Before(p.Cutoff(now))
}
