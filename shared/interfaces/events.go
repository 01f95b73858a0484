package interfaces

import "context"

// EventPublisher defines the interface for publishing realtime feed events.
// Implementations wrap data in the wire envelope and route it through the
// message broker to the realtime service.
type EventPublisher interface {
	// PublishEvent publishes one event under the given routing key.
	// data must be JSON-serializable.
	PublishEvent(ctx context.Context, routingKey, eventType string, data any) error

	// Close releases the underlying channel and connection.
	Close() error
}
