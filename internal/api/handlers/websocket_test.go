package handlers_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkcircle/talkcircle-backend/internal/live"
	"github.com/talkcircle/talkcircle-backend/internal/testutil"
	"github.com/talkcircle/talkcircle-backend/internal/websocket"
)

func TestWebSocketDeliversRoomMetrics(t *testing.T) {
	ts := testutil.NewTestServer(t)

	conn, _, err := gws.DefaultDialer.Dial(ts.WebSocketURL(), nil)
	require.NoError(t, err)
	defer conn.Close()

	roomID, userID := uuid.New(), uuid.New()

	join, err := websocket.NewMessage(websocket.MessageTypeJoinRoom, websocket.JoinRoomPayload{
		RoomID:   roomID.String(),
		UserID:   userID.String(),
		UserName: "ada",
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(join))

	// The join lands asynchronously; keep broadcasting until the
	// subscription catches one.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(50 * time.Millisecond):
				ts.Hub.BroadcastRoomMetrics(roomID, live.RoomMetricsSnapshot{
					RoomID:            roomID,
					LastSpeakerUserID: userID,
				})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err, "no snapshot delivered")

	var msg websocket.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, websocket.MessageTypeRoomMetrics, msg.Type)

	var snapshot live.RoomMetricsSnapshot
	require.NoError(t, json.Unmarshal(msg.Payload, &snapshot))
	assert.Equal(t, roomID, snapshot.RoomID)
	assert.Equal(t, userID, snapshot.LastSpeakerUserID)
}

func TestWebSocketRejectsMalformedJoin(t *testing.T) {
	ts := testutil.NewTestServer(t)

	conn, _, err := gws.DefaultDialer.Dial(ts.WebSocketURL(), nil)
	require.NoError(t, err)
	defer conn.Close()

	join, err := websocket.NewMessage(websocket.MessageTypeJoinRoom, websocket.JoinRoomPayload{
		RoomID: "not-a-uuid",
		UserID: uuid.NewString(),
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(join))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg websocket.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, websocket.MessageTypeError, msg.Type)

	var payload websocket.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "INVALID_ROOM_ID", payload.Code)
}
