package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"barrio-connector/internal/domain/dto"
	"barrio-connector/internal/domain/entities"
	ports "barrio-connector/internal/domain/interfaces/repository"
	"barrio-connector/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStoreUsers map[string]string

func (f fakeStoreUsers) FindByPhone(_ context.Context, phone string) (*entities.StoreUser, error) {
	if phone == "500" {
		return nil, errors.New("mongo down")
	}
	store, ok := f[phone]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &entities.StoreUser{Phone: phone, StoreID: store}, nil
}

type turn struct{ phone, store, utterance string }

type recordingEngine struct {
	mu    sync.Mutex
	turns []turn
}

func (e *recordingEngine) ProcessMessage(_ context.Context, userPhone, storeID, utterance string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.turns = append(e.turns, turn{userPhone, storeID, utterance})
	return "eco: " + utterance
}

type sentMessage struct{ to, message string }

type recordingProvider struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (p *recordingProvider) SendTextMessage(_ context.Context, to, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentMessage{to, message})
	return p.err
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5215512345678", NormalizePhone("whatsapp:+52 1 55 1234 5678"))
	assert.Equal(t, "5215512345678", NormalizePhone("5215512345678"))
	assert.Equal(t, "", NormalizePhone("whatsapp:"))
}

func TestChannelService_Converse(t *testing.T) {
	engine := &recordingEngine{}
	svc := NewChannelService(logger.NewDiscardLogger(), engine, fakeStoreUsers{"5215512345678": "store-1"}, &recordingProvider{})

	assert.Equal(t, "eco: venta", svc.Converse(context.Background(), "whatsapp:+5215512345678", "venta"))
	require.Len(t, engine.turns, 1)
	assert.Equal(t, turn{"5215512345678", "store-1", "venta"}, engine.turns[0])

	assert.Equal(t, ReplyNotRegistered, svc.Converse(context.Background(), "999", "venta"))
	assert.Equal(t, ReplyRetry, svc.Converse(context.Background(), "+500", "venta"))
	assert.Equal(t, ReplyTextOnly, svc.Converse(context.Background(), "5215512345678", "   "))
	assert.Len(t, engine.turns, 1)
}

func TestChannelService_WebhookService(t *testing.T) {
	engine := &recordingEngine{}
	sender := &recordingProvider{}
	svc := NewChannelService(logger.NewDiscardLogger(), engine, fakeStoreUsers{"5215512345678": "store-1"}, sender)

	svc.WebhookService(context.Background(), &dto.InboundResponse{
		Results: []dto.Result{
			{From: "5215512345678", Message: dto.Message{Type: "TEXT", Text: "gasto de luz"}},
			{From: "5215512345678", Message: dto.Message{Type: "AUDIO", Url: "https://example.com/a.ogg"}},
			{From: "5215512345678", Message: dto.Message{Type: "TEXT", Text: "50"}},
		},
		MessageCount: 3,
	})

	require.Len(t, sender.sent, 3)
	assert.Equal(t, sentMessage{"5215512345678", "eco: gasto de luz"}, sender.sent[0])
	assert.Equal(t, ReplyTextOnly, sender.sent[1].message)
	assert.Equal(t, "eco: 50", sender.sent[2].message)
	assert.Len(t, engine.turns, 2)

	svc.WebhookService(context.Background(), nil)
	assert.Len(t, sender.sent, 3)
}
