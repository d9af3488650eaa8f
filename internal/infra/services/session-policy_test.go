package services

import (
	"testing"
	"time"

	"barrio-connector/internal/domain/entities"

	"github.com/stretchr/testify/assert"
)

func TestSessionPolicy_IsFresh(t *testing.T) {
	policy := NewSessionPolicy(5 * time.Minute)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	conv := entities.NewConversation("521", "store-1", now.Add(-5*time.Minute))
	assert.True(t, policy.IsFresh(conv, now))

	conv.LastMessageAt = now.Add(-5*time.Minute - time.Nanosecond)
	assert.False(t, policy.IsFresh(conv, now))

	assert.False(t, policy.IsFresh(nil, now))
	assert.Equal(t, now.Add(-5*time.Minute), policy.Cutoff(now))
}
