package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"game-library-server/shared/interfaces"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Envelope is the wire format of every event on ExchangeLibraryEvents. Data
// stays raw so consumers can fan events out without reparsing the payload.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// RabbitMQEventPublisher implements interfaces.EventPublisher over a durable
// topic exchange.
type RabbitMQEventPublisher struct {
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

// Compile-time check to ensure RabbitMQEventPublisher implements EventPublisher.
var _ interfaces.EventPublisher = (*RabbitMQEventPublisher)(nil)

// NewRabbitMQEventPublisher opens a channel on conn and declares the library
// events exchange. The connection must already be established; reconnect
// handling belongs to the caller that owns the connection.
func NewRabbitMQEventPublisher(conn *amqp091.Connection) (*RabbitMQEventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open a channel")
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Durable so the exchange survives a broker restart.
	err = ch.ExchangeDeclare(
		ExchangeLibraryEvents, // name
		"topic",               // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		_ = ch.Close()
		log.Error().Err(err).Str("exchange", ExchangeLibraryEvents).Msg("Failed to declare exchange")
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", ExchangeLibraryEvents, err)
	}

	return &RabbitMQEventPublisher{conn: conn, ch: ch}, nil
}

// PublishEvent wraps data in the event envelope and publishes it under the
// given routing key.
func (p *RabbitMQEventPublisher) PublishEvent(ctx context.Context, routingKey, eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	env := Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		ExchangeLibraryEvents, // exchange
		routingKey,            // routing key
		false,                 // mandatory
		false,                 // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			MessageId:   env.ID,
			Timestamp:   env.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		log.Error().Err(err).Str("routingKey", routingKey).Str("type", eventType).Msg("Failed to publish event")
		return fmt.Errorf("failed to publish event '%s': %w", eventType, err)
	}

	log.Debug().Str("routingKey", routingKey).Str("type", eventType).Msg("Event published")
	return nil
}

// Close closes the RabbitMQ channel. The connection is owned by the caller.
func (p *RabbitMQEventPublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
