package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"game-library-server/realtime-service/internal/handler"
	"game-library-server/shared/messaging"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Consumer drains the library event feed from RabbitMQ and fans the events
// out to WebSocket sessions through the connection manager.
type Consumer struct {
	conn    *amqp.Connection
	manager *handler.ConnectionManager
	logger  zerolog.Logger
}

// NewConsumer creates a Consumer on an established connection.
func NewConsumer(conn *amqp.Connection, manager *handler.ConnectionManager, logger zerolog.Logger) *Consumer {
	return &Consumer{
		conn:    conn,
		manager: manager,
		logger:  logger.With().Str("component", "EventConsumer").Logger(),
	}
}

// Run declares an exclusive queue bound to the full event feed and consumes
// until ctx is cancelled. Blocking; run it in its own goroutine.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Matches the publisher's declaration; idempotent.
	err = ch.ExchangeDeclare(messaging.ExchangeLibraryEvents, "topic", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", messaging.ExchangeLibraryEvents, err)
	}

	// Exclusive and auto-named: each realtime instance gets its own copy of
	// the feed, and the queue vanishes with the connection. There is no
	// replay on reconnect by design.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare feed queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "#", messaging.ExchangeLibraryEvents, false, nil); err != nil {
		return fmt.Errorf("failed to bind feed queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "realtime-service", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", q.Name).Msg("Consuming library event feed")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Event consumer stopping")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(delivery)
		}
	}
}

func (c *Consumer) handleDelivery(delivery amqp.Delivery) {
	var env messaging.Envelope
	if err := json.Unmarshal(delivery.Body, &env); err != nil {
		c.logger.Warn().Err(err).Str("routingKey", delivery.RoutingKey).Msg("Malformed event envelope, dropped")
		return
	}

	// Events carrying a library_id are scoped to that library's room;
	// system events broadcast to the general room.
	var scope struct {
		LibraryID string `json:"library_id"`
	}
	_ = json.Unmarshal(env.Data, &scope)

	msg := handler.OutboundMessage{
		Type:      env.Type,
		Data:      env.Data,
		Timestamp: env.Timestamp,
		ID:        env.ID,
	}
	delivered := c.manager.Dispatch(env.Type, scope.LibraryID, msg)
	c.logger.Debug().
		Str("type", env.Type).
		Str("libraryID", scope.LibraryID).
		Int("delivered", delivered).
		Msg("Event dispatched")
}
