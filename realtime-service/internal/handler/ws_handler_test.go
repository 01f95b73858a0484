package handler

import (
	"encoding/json"
	"fmt"
	"testing"

	"game-library-server/shared/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, msgType string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(inboundMessage{Type: msgType, Data: raw})
	require.NoError(t, err)
	return out
}

func TestHandleMessagePing(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	c := newTestClient("c")
	require.True(t, m.Register(c))

	c.handleMessage(m, []byte(`{"type":"ping"}`), zerolog.Nop())

	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, constants.WSEventPong, msgs[0].Type)
}

func TestHandleMessageSubscribeThenReceive(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	c := newTestClient("c")
	require.True(t, m.Register(c))
	libraryID := uuid.NewString()

	payload := map[string]any{
		"events":  []string{constants.WSEventSyncProgress},
		"filters": map[string]string{"library_id": libraryID},
	}
	c.handleMessage(m, frame(t, constants.WSActionSubscribe, payload), zerolog.Nop())

	m.Dispatch(constants.WSEventSyncProgress, libraryID,
		NewOutboundMessage(constants.WSEventSyncProgress, nil, ""))
	assert.Len(t, drain(t, c), 1)
}

func TestHandleMessageJoinLibrary(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	c := newTestClient("c")
	require.True(t, m.Register(c))
	libraryID := uuid.NewString()

	raw := []byte(fmt.Sprintf(`{"type":"join_library","data":{"library_id":%q}}`, libraryID))
	c.handleMessage(m, raw, zerolog.Nop())

	m.Dispatch(constants.WSEventGameAdded, libraryID,
		NewOutboundMessage(constants.WSEventGameAdded, nil, ""))
	assert.Len(t, drain(t, c), 1)
}

func TestHandleMessageSubscribeWithoutEvents(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	c := newTestClient("c")
	require.True(t, m.Register(c))

	c.handleMessage(m, []byte(`{"type":"subscribe","data":{}}`), zerolog.Nop())

	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, constants.WSEventConnectionError, msgs[0].Type)
}

func TestHandleMessageUnknownType(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	c := newTestClient("c")
	require.True(t, m.Register(c))

	c.handleMessage(m, []byte(`{"type":"teleport"}`), zerolog.Nop())

	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, constants.WSEventConnectionError, msgs[0].Type)
}

func TestHandleMessageMalformedJSON(t *testing.T) {
	m := NewConnectionManager(0, zerolog.Nop())
	c := newTestClient("c")
	require.True(t, m.Register(c))

	c.handleMessage(m, []byte(`{not json`), zerolog.Nop())

	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, constants.WSEventConnectionError, msgs[0].Type)
}
