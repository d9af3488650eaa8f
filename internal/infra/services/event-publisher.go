package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"barrio-connector/internal/domain/dto"
	Iservices "barrio-connector/internal/domain/interfaces/services"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	_ Iservices.IEventPublisher = (*RabbitEventPublisher)(nil)
	_ Iservices.IEventPublisher = NopEventPublisher{}
)

// AMQPPublisher is the part of *amqp.Channel the publisher needs.
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitEventPublisher emits domain events to a topic exchange, routed by
// event type, for the notification workers.
type RabbitEventPublisher struct {
	Channel  AMQPPublisher
	Exchange string
	Timeout  time.Duration

	mu sync.Mutex
}

func NewRabbitEventPublisher(channel AMQPPublisher, exchange string) *RabbitEventPublisher {
	return &RabbitEventPublisher{Channel: channel, Exchange: exchange, Timeout: 5 * time.Second}
}

func (p *RabbitEventPublisher) PublishCommitted(ctx context.Context, event dto.TransactionCommittedEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Type == "" {
		event.Type = dto.EventTransactionCommitted
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Channel.PublishWithContext(cctx,
		p.Exchange,
		event.Type, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
			Body:         body,
		},
	)
}

// NopEventPublisher drops events; used when no broker is configured.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishCommitted(context.Context, dto.TransactionCommittedEvent) error {
	return nil
}
