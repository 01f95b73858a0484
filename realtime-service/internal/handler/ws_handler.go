package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"game-library-server/shared/constants"
	"game-library-server/shared/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API sits behind the operator's reverse proxy; origin enforcement
	// happens there.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundMessage is the wire shape of every client->server frame.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type subscribePayload struct {
	Events  []string `json:"events"`
	Filters struct {
		LibraryID string `json:"library_id"`
	} `json:"filters"`
}

type libraryPayload struct {
	LibraryID string `json:"library_id"`
}

// WebSocketHandler upgrades HTTP requests and runs the per-session pumps.
type WebSocketHandler struct {
	manager     *ConnectionManager
	secret      string
	authEnabled bool
	logger      zerolog.Logger
}

// NewWebSocketHandler creates a WebSocketHandler. When authEnabled is false
// the token check is bypassed (reverse-proxy deployment).
func NewWebSocketHandler(manager *ConnectionManager, secret string, authEnabled bool, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager:     manager,
		secret:      secret,
		authEnabled: authEnabled,
		logger:      logger.With().Str("component", "WebSocketHandler").Logger(),
	}
}

// ServeWS handles an incoming WebSocket handshake on GET /ws.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.authEnabled {
		token := r.URL.Query().Get("token")
		if token == "" {
			h.logger.Warn().Msg("Missing token query parameter")
			http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
			return
		}
		if _, err := middleware.ParseAdminToken(token, h.secret); err != nil {
			h.logger.Warn().Err(err).Msg("Invalid handshake token")
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := &Client{
		SessionID:     uuid.NewString(),
		Conn:          conn,
		send:          make(chan []byte, 256),
		rooms:         map[string]struct{}{constants.RoomGeneral: {}},
		subscriptions: make(map[string]subscriptionFilter),
	}

	if !h.manager.Register(client) {
		h.logger.Warn().Msg("Connection cap reached, rejecting session")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server full"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	logger := h.logger.With().Str("sessionID", client.SessionID).Logger()
	logger.Info().Msg("WebSocket connection established")

	established, _ := json.Marshal(map[string]string{"session_id": client.SessionID})
	h.manager.SendTo(client.SessionID,
		NewOutboundMessage(constants.WSEventConnectionEstablished, established, ""))

	go client.writePump(logger)
	go client.readPump(h.manager, logger)
}

// readPump reads client frames and applies subscription commands until the
// connection drops.
func (c *Client) readPump(manager *ConnectionManager, logger zerolog.Logger) {
	defer func() {
		manager.Unregister(c.SessionID)
		_ = c.Conn.Close()
		logger.Info().Msg("readPump finished")
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			} else {
				logger.Info().Msg("WebSocket connection closed")
			}
			return
		}
		c.handleMessage(manager, raw, logger)
	}
}

func (c *Client) handleMessage(manager *ConnectionManager, raw []byte, logger zerolog.Logger) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warn().Err(err).Msg("Malformed client frame")
		c.sendError(manager, "malformed message")
		return
	}

	switch msg.Type {
	case constants.WSActionPing:
		manager.SendTo(c.SessionID, NewOutboundMessage(constants.WSEventPong, nil, ""))

	case constants.WSActionSubscribe:
		var payload subscribePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil || len(payload.Events) == 0 {
			c.sendError(manager, "subscribe requires an events list")
			return
		}
		c.subscribe(payload.Events, payload.Filters.LibraryID)
		logger.Debug().Strs("events", payload.Events).Str("libraryID", payload.Filters.LibraryID).Msg("Subscribed")

	case constants.WSActionUnsubscribe:
		var payload subscribePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError(manager, "unsubscribe requires an events list")
			return
		}
		c.unsubscribe(payload.Events)

	case constants.WSActionJoinLibrary:
		var payload libraryPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.LibraryID == "" {
			c.sendError(manager, "join_library requires a library_id")
			return
		}
		c.joinRoom(constants.RoomForLibrary(payload.LibraryID))
		logger.Debug().Str("libraryID", payload.LibraryID).Msg("Joined library room")

	case constants.WSActionLeaveLibrary:
		var payload libraryPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.LibraryID == "" {
			c.sendError(manager, "leave_library requires a library_id")
			return
		}
		c.leaveRoom(constants.RoomForLibrary(payload.LibraryID))

	case constants.WSActionAIChat:
		// Opaque to this core; the AI collaborator consumes it elsewhere.
		logger.Debug().Msg("ai_chat_message received, ignored by realtime core")

	default:
		logger.Warn().Str("type", msg.Type).Msg("Unknown client message type")
		c.sendError(manager, "unknown message type "+msg.Type)
	}
}

func (c *Client) sendError(manager *ConnectionManager, message string) {
	data, _ := json.Marshal(map[string]string{"message": message})
	manager.SendTo(c.SessionID, NewOutboundMessage(constants.WSEventConnectionError, data, ""))
}

// writePump drains the send channel into the connection and keeps the peer
// alive with pings.
func (c *Client) writePump(logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		logger.Info().Msg("writePump finished")
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn().Err(err).Msg("Failed to send ping")
				return
			}
		}
	}
}
