package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkcircle/talkcircle-backend/internal/live"
)

const waitFor = 2 * time.Second

type nopStreams struct{}

func (nopStreams) Start(uuid.UUID, uuid.UUID, string, string, string) {}
func (nopStreams) PushAudio(uuid.UUID, uuid.UUID, []byte)             {}
func (nopStreams) Stop(uuid.UUID, uuid.UUID)                          {}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	hub := NewHub(nopStreams{}, logger)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func newTestClient(hub *Hub) *Client {
	return &Client{
		hub:    hub,
		send:   make(chan []byte, 8),
		logger: hub.logger,
	}
}

func join(t *testing.T, hub *Hub, client *Client, roomID, userID uuid.UUID, name string) {
	t.Helper()
	hub.Register(client)
	hub.joinRoom <- &joinRoomRequest{
		client:   client,
		roomID:   roomID,
		userID:   userID,
		userName: name,
	}
	// The run loop applies the join asynchronously; wait for the
	// subscription to land before broadcasting at it.
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.rooms[roomID][client]
	}, waitFor, 5*time.Millisecond)
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case data := <-client.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(waitFor):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHubBroadcastsToRoomSubscribersOnly(t *testing.T) {
	hub := newTestHub(t)
	roomA, roomB := uuid.New(), uuid.New()

	inRoom := newTestClient(hub)
	other := newTestClient(hub)
	join(t, hub, inRoom, roomA, uuid.New(), "ada")
	join(t, hub, other, roomB, uuid.New(), "ben")

	speaker := uuid.New()
	hub.BroadcastRoomMetrics(roomA, live.RoomMetricsSnapshot{
		RoomID:            roomA,
		LastSpeakerUserID: speaker,
	})

	msg := receive(t, inRoom)
	assert.Equal(t, MessageTypeRoomMetrics, msg.Type)

	var snapshot live.RoomMetricsSnapshot
	require.NoError(t, json.Unmarshal(msg.Payload, &snapshot))
	assert.Equal(t, roomA, snapshot.RoomID)
	assert.Equal(t, speaker, snapshot.LastSpeakerUserID)

	assert.Empty(t, other.send, "other rooms receive nothing")
}

func TestHubNotifyMatchedReachesAllUserConnections(t *testing.T) {
	hub := newTestHub(t)
	roomID := uuid.New()
	userID := uuid.New()

	first := newTestClient(hub)
	second := newTestClient(hub)
	bystander := newTestClient(hub)
	join(t, hub, first, roomID, userID, "ada")
	join(t, hub, second, roomID, userID, "ada")
	join(t, hub, bystander, roomID, uuid.New(), "ben")

	matched := uuid.New()
	hub.NotifyMatched([]uuid.UUID{userID}, QueueMatchedPayload{
		RoomID: matched.String(),
		Topic:  "remote work",
	})

	for _, client := range []*Client{first, second} {
		msg := receive(t, client)
		assert.Equal(t, MessageTypeQueueMatched, msg.Type)

		var payload QueueMatchedPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, matched.String(), payload.RoomID)
		assert.Equal(t, "remote work", payload.Topic)
	}
	assert.Empty(t, bystander.send)
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := newTestHub(t)
	roomID := uuid.New()

	client := newTestClient(hub)
	join(t, hub, client, roomID, uuid.New(), "ada")
	hub.Unregister(client)

	// Wait for the run loop to process the unregister: the send channel
	// closes when it does.
	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(waitFor):
		t.Fatal("unregister never processed")
	}

	hub.BroadcastRoomMetrics(roomID, live.RoomMetricsSnapshot{RoomID: roomID})
}

func TestHubRejoinMovesSubscription(t *testing.T) {
	hub := newTestHub(t)
	roomA, roomB := uuid.New(), uuid.New()
	userID := uuid.New()

	client := newTestClient(hub)
	join(t, hub, client, roomA, userID, "ada")
	join(t, hub, client, roomB, userID, "ada")

	hub.BroadcastRoomMetrics(roomB, live.RoomMetricsSnapshot{RoomID: roomB})
	msg := receive(t, client)
	assert.Equal(t, MessageTypeRoomMetrics, msg.Type)

	var snapshot live.RoomMetricsSnapshot
	require.NoError(t, json.Unmarshal(msg.Payload, &snapshot))
	assert.Equal(t, roomB, snapshot.RoomID)

	hub.BroadcastRoomMetrics(roomA, live.RoomMetricsSnapshot{RoomID: roomA})
	assert.Empty(t, client.send, "old room no longer delivers")
}

func TestHubStopClosesClients(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	hub := NewHub(nopStreams{}, logger)
	go hub.Run()

	client := newTestClient(hub)
	join(t, hub, client, uuid.New(), uuid.New(), "ada")

	hub.Stop()

	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel should be closed on stop")
	case <-time.After(waitFor):
		t.Fatal("client never closed")
	}

	// Idempotent.
	hub.Stop()
}
