package client

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitChannel dials url and declares a durable topic exchange on a fresh channel.
func RabbitChannel(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("error to connect RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("error to open RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("error to declare exchange %s: %w", exchange, err)
	}

	return conn, ch, nil
}
