package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PublisherSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcrabbitmq.RabbitMQContainer
	conn      *amqp.Connection
	publisher *RabbitMQEventPublisher
}

func (s *PublisherSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = tcrabbitmq.Run(s.ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").WithStartupTimeout(3*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start rabbitmq container")

	url, err := s.container.AmqpURL(s.ctx)
	require.NoError(s.T(), err)

	s.conn, err = amqp.Dial(url)
	require.NoError(s.T(), err)

	s.publisher, err = NewRabbitMQEventPublisher(s.conn)
	require.NoError(s.T(), err)
}

func (s *PublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

// bindQueue declares a fresh exclusive queue bound to the events exchange
// with the given pattern and returns its delivery channel.
func (s *PublisherSuite) bindQueue(pattern string) <-chan amqp.Delivery {
	t := s.T()
	t.Helper()

	ch, err := s.conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, pattern, ExchangeLibraryEvents, false, nil))

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)
	return deliveries
}

func receive(t *testing.T, deliveries <-chan amqp.Delivery) amqp.Delivery {
	t.Helper()
	select {
	case d := <-deliveries:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for a delivery")
		return amqp.Delivery{}
	}
}

func (s *PublisherSuite) TestPublishWrapsEnvelope() {
	t := s.T()
	deliveries := s.bindQueue("#")

	payload := SyncLifecyclePayload{
		OperationID: uuid.New(),
		LibraryID:   uuid.New(),
		Platform:    "steam",
	}
	require.NoError(t, s.publisher.PublishEvent(s.ctx, RoutingKeySyncStarted, "sync_started", payload))

	d := receive(t, deliveries)
	require.Equal(t, RoutingKeySyncStarted, d.RoutingKey)
	require.Equal(t, "application/json", d.ContentType)

	var env Envelope
	require.NoError(t, json.Unmarshal(d.Body, &env))
	require.Equal(t, "sync_started", env.Type)
	require.Equal(t, env.ID, d.MessageId)
	require.NotEmpty(t, env.ID)
	require.WithinDuration(t, time.Now().UTC(), env.Timestamp, time.Minute)

	var got SyncLifecyclePayload
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, payload.OperationID, got.OperationID)
	require.Equal(t, payload.LibraryID, got.LibraryID)
}

func (s *PublisherSuite) TestTopicBindingFiltersByGroup() {
	t := s.T()
	syncOnly := s.bindQueue("sync.#")
	everything := s.bindQueue("#")

	require.NoError(t, s.publisher.PublishEvent(s.ctx, RoutingKeyGameAdded, "game_added", GameEventPayload{
		LibraryID: uuid.New(), GameID: uuid.New(), Title: "Celeste", Platform: "steam",
	}))
	require.NoError(t, s.publisher.PublishEvent(s.ctx, RoutingKeySyncCompleted, "sync_completed", SyncLifecyclePayload{
		OperationID: uuid.New(), LibraryID: uuid.New(), Platform: "steam",
	}))

	d := receive(t, everything)
	require.Equal(t, RoutingKeyGameAdded, d.RoutingKey)
	d = receive(t, everything)
	require.Equal(t, RoutingKeySyncCompleted, d.RoutingKey)

	// The sync-only binding never sees the game event.
	d = receive(t, syncOnly)
	require.Equal(t, RoutingKeySyncCompleted, d.RoutingKey)
	select {
	case extra := <-syncOnly:
		t.Fatalf("Unexpected delivery on sync binding: %s", extra.RoutingKey)
	case <-time.After(200 * time.Millisecond):
	}
}

func (s *PublisherSuite) TestPublisherSurvivesBrokerDeclaredExchange() {
	t := s.T()

	// A second publisher on the same connection re-declares the exchange;
	// the declaration is idempotent.
	second, err := NewRabbitMQEventPublisher(s.conn)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	deliveries := s.bindQueue(RoutingKeyNotification)
	require.NoError(t, second.PublishEvent(s.ctx, RoutingKeyNotification, "system_notification", NotificationPayload{
		Severity: "info", Title: "Scheduled sync", Message: "Nightly sync finished",
	}))
	require.Equal(t, RoutingKeyNotification, receive(t, deliveries).RoutingKey)
}

func TestPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Fatalf("Docker client init error: %v. Ensure Docker is running and accessible.", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Fatalf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(PublisherSuite))
}
