package handler

import (
	"encoding/json"
	"sync"
	"time"

	"game-library-server/shared/constants"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// OutboundMessage is the wire shape of every server->client frame.
type OutboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	ID        string          `json:"id,omitempty"`
}

// NewOutboundMessage stamps an envelope around already-encoded event data.
func NewOutboundMessage(eventType string, data json.RawMessage, id string) OutboundMessage {
	if id == "" {
		id = uuid.NewString()
	}
	return OutboundMessage{Type: eventType, Data: data, Timestamp: time.Now().UTC(), ID: id}
}

// Client is one WebSocket session. Room membership and event subscriptions
// are owned by the manager; the pumps only touch Conn and send.
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	send      chan []byte

	mu sync.Mutex
	// rooms the client joined via join_library (plus the general room).
	rooms map[string]struct{}
	// events the client subscribed to; empty means "room traffic only".
	// A subscription may be narrowed to one library.
	subscriptions map[string]subscriptionFilter
}

type subscriptionFilter struct {
	libraryID string // "" matches every library
}

func (c *Client) joinRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = struct{}{}
}

func (c *Client) leaveRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

func (c *Client) subscribe(events []string, libraryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range events {
		c.subscriptions[event] = subscriptionFilter{libraryID: libraryID}
	}
}

func (c *Client) unsubscribe(events []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range events {
		delete(c.subscriptions, event)
	}
}

// wants reports whether the client should receive an event of the given type
// scoped to libraryID ("" for broadcast events).
func (c *Client) wants(eventType, room, libraryID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if room != "" {
		if _, inRoom := c.rooms[room]; inRoom {
			return true
		}
	}
	filter, subscribed := c.subscriptions[eventType]
	if !subscribed {
		return false
	}
	return filter.libraryID == "" || filter.libraryID == libraryID
}

// ConnectionManager tracks active sessions and fans events out to them.
// Delivery is at-least-once while connected; there is no replay on
// reconnect, clients reconcile by polling the sync status endpoint.
type ConnectionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Client

	maxConnections int
	logger         zerolog.Logger
}

// NewConnectionManager creates a manager. maxConnections 0 means unlimited.
func NewConnectionManager(maxConnections int, logger zerolog.Logger) *ConnectionManager {
	return &ConnectionManager{
		sessions:       make(map[string]*Client),
		maxConnections: maxConnections,
		logger:         logger.With().Str("component", "ConnectionManager").Logger(),
	}
}

// Register adds a session. Returns false when the connection cap is reached.
func (m *ConnectionManager) Register(client *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxConnections > 0 && len(m.sessions) >= m.maxConnections {
		return false
	}
	m.sessions[client.SessionID] = client
	m.logger.Info().Str("sessionID", client.SessionID).Int("sessions", len(m.sessions)).Msg("Session registered")
	return true
}

// Unregister removes a session and closes its send channel.
func (m *ConnectionManager) Unregister(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if client, ok := m.sessions[sessionID]; ok {
		delete(m.sessions, sessionID)
		close(client.send)
		m.logger.Info().Str("sessionID", sessionID).Int("sessions", len(m.sessions)).Msg("Session unregistered")
	}
}

// SessionCount returns the number of active sessions.
func (m *ConnectionManager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Dispatch delivers an event to every interested session. libraryID may be
// empty for broadcast events; those go to subscribers of the type and to
// the general room.
func (m *ConnectionManager) Dispatch(eventType, libraryID string, msg OutboundMessage) int {
	raw, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error().Err(err).Str("type", eventType).Msg("Failed to marshal outbound message")
		return 0
	}

	room := constants.RoomGeneral
	if libraryID != "" {
		room = constants.RoomForLibrary(libraryID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	delivered := 0
	for _, client := range m.sessions {
		if !client.wants(eventType, room, libraryID) {
			continue
		}
		select {
		case client.send <- raw:
			delivered++
		default:
			// Slow consumer; drop the frame rather than stall the feed.
			// The client reconciles through the polling endpoints.
			m.logger.Warn().Str("sessionID", client.SessionID).Str("type", eventType).Msg("Send queue full, frame dropped")
		}
	}
	return delivered
}

// SendTo queues a message for a single session.
func (m *ConnectionManager) SendTo(sessionID string, msg OutboundMessage) bool {
	raw, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal outbound message")
		return false
	}

	m.mu.RLock()
	client, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case client.send <- raw:
		return true
	default:
		m.logger.Warn().Str("sessionID", sessionID).Str("type", msg.Type).Msg("Send queue full, frame dropped")
		return false
	}
}
