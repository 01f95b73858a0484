package handler

import (
	"encoding/json"
	"testing"

	"game-library-server/shared/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(sessionID string) *Client {
	return &Client{
		SessionID:     sessionID,
		send:          make(chan []byte, 16),
		rooms:         map[string]struct{}{constants.RoomGeneral: {}},
		subscriptions: make(map[string]subscriptionFilter),
	}
}

func drain(t *testing.T, c *Client) []OutboundMessage {
	t.Helper()
	var out []OutboundMessage
	for {
		select {
		case raw := <-c.send:
			var msg OutboundMessage
			require.NoError(t, json.Unmarshal(raw, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestDispatchToLibraryRoom(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	libraryID := uuid.NewString()

	member := newTestClient("member")
	member.joinRoom(constants.RoomForLibrary(libraryID))
	outsider := newTestClient("outsider")
	require.True(t, m.Register(member))
	require.True(t, m.Register(outsider))

	delivered := m.Dispatch(constants.WSEventSyncProgress, libraryID,
		NewOutboundMessage(constants.WSEventSyncProgress, nil, ""))

	assert.Equal(t, 1, delivered)
	assert.Len(t, drain(t, member), 1)
	assert.Empty(t, drain(t, outsider))
}

func TestDispatchToSubscriberWithLibraryFilter(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	wanted, other := uuid.NewString(), uuid.NewString()

	filtered := newTestClient("filtered")
	filtered.subscribe([]string{constants.WSEventSyncCompleted}, wanted)
	unfiltered := newTestClient("unfiltered")
	unfiltered.subscribe([]string{constants.WSEventSyncCompleted}, "")
	require.True(t, m.Register(filtered))
	require.True(t, m.Register(unfiltered))

	m.Dispatch(constants.WSEventSyncCompleted, other,
		NewOutboundMessage(constants.WSEventSyncCompleted, nil, ""))

	assert.Empty(t, drain(t, filtered), "filter on another library must not match")
	assert.Len(t, drain(t, unfiltered), 1, "unfiltered subscription matches every library")
}

func TestDispatchBroadcastReachesGeneralRoom(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())

	a := newTestClient("a")
	b := newTestClient("b")
	require.True(t, m.Register(a))
	require.True(t, m.Register(b))

	delivered := m.Dispatch(constants.WSEventSystemNotification, "",
		NewOutboundMessage(constants.WSEventSystemNotification, nil, ""))

	assert.Equal(t, 2, delivered)
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	libraryID := uuid.NewString()
	room := constants.RoomForLibrary(libraryID)

	c := newTestClient("c")
	c.joinRoom(room)
	require.True(t, m.Register(c))

	m.Dispatch(constants.WSEventGameAdded, libraryID, NewOutboundMessage(constants.WSEventGameAdded, nil, ""))
	require.Len(t, drain(t, c), 1)

	c.leaveRoom(room)
	m.Dispatch(constants.WSEventGameAdded, libraryID, NewOutboundMessage(constants.WSEventGameAdded, nil, ""))
	assert.Empty(t, drain(t, c))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	libraryID := uuid.NewString()

	c := newTestClient("c")
	c.subscribe([]string{constants.WSEventSyncFailed}, "")
	require.True(t, m.Register(c))

	m.Dispatch(constants.WSEventSyncFailed, libraryID, NewOutboundMessage(constants.WSEventSyncFailed, nil, ""))
	require.Len(t, drain(t, c), 1)

	c.unsubscribe([]string{constants.WSEventSyncFailed})
	m.Dispatch(constants.WSEventSyncFailed, libraryID, NewOutboundMessage(constants.WSEventSyncFailed, nil, ""))
	assert.Empty(t, drain(t, c))
}

func TestSlowConsumerDropsFramesWithoutBlocking(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	libraryID := uuid.NewString()

	c := newTestClient("slow")
	c.send = make(chan []byte, 1) // tiny queue
	c.joinRoom(constants.RoomForLibrary(libraryID))
	require.True(t, m.Register(c))

	first := m.Dispatch(constants.WSEventSyncProgress, libraryID, NewOutboundMessage(constants.WSEventSyncProgress, nil, ""))
	second := m.Dispatch(constants.WSEventSyncProgress, libraryID, NewOutboundMessage(constants.WSEventSyncProgress, nil, ""))

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second, "full queue drops instead of blocking")
}

func TestConnectionCap(t *testing.T) {
	m := NewConnectionManager(1, zerolog.Nop())

	require.True(t, m.Register(newTestClient("one")))
	assert.False(t, m.Register(newTestClient("two")))
	assert.Equal(t, 1, m.SessionCount())
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	c := newTestClient("c")
	require.True(t, m.Register(c))

	m.Unregister(c.SessionID)

	_, open := <-c.send
	assert.False(t, open)
	assert.Equal(t, 0, m.SessionCount())

	// Dispatch after unregister must not panic or deliver.
	delivered := m.Dispatch(constants.WSEventSystemNotification, "",
		NewOutboundMessage(constants.WSEventSystemNotification, nil, ""))
	assert.Equal(t, 0, delivered)
}

func TestOutboundMessageEnvelope(t *testing.T) {
	data, _ := json.Marshal(map[string]int{"games_processed": 10})
	msg := NewOutboundMessage(constants.WSEventSyncProgress, data, "")

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "type")
	assert.Contains(t, decoded, "data")
	assert.Contains(t, decoded, "timestamp")
	assert.Contains(t, decoded, "id")
}
