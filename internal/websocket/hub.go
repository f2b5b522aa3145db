package websocket

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/live"
)

// StreamHandler receives the audio streaming lifecycle of connected
// clients. Implemented by the ingestion manager.
type StreamHandler interface {
	Start(roomID, userID uuid.UUID, userName, language, mimeType string)
	PushAudio(roomID, userID uuid.UUID, frame []byte)
	Stop(roomID, userID uuid.UUID)
}

type memberInfo struct {
	roomID uuid.UUID
	userID uuid.UUID
}

// Hub tracks connected clients by room and by user. Membership changes go
// through the run loop; broadcasts read the maps under the read lock so
// snapshot fan-out never queues behind joins.
type Hub struct {
	rooms      map[uuid.UUID]map[*Client]bool
	byUser     map[uuid.UUID]map[*Client]bool
	clients    map[*Client]bool
	membership map[*Client]memberInfo

	register   chan *Client
	unregister chan *Client
	joinRoom   chan *joinRoomRequest
	stop       chan struct{}
	done       chan struct{}
	stopped    bool

	streams StreamHandler
	logger  *logrus.Logger
	mu      sync.RWMutex
}

type joinRoomRequest struct {
	client   *Client
	roomID   uuid.UUID
	userID   uuid.UUID
	userName string
}

func NewHub(streams StreamHandler, logger *logrus.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		byUser:     make(map[uuid.UUID]map[*Client]bool),
		clients:    make(map[*Client]bool),
		membership: make(map[*Client]memberInfo),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joinRoom:   make(chan *joinRoomRequest),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		streams:    streams,
		logger:     logger,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]bool)
			h.rooms = make(map[uuid.UUID]map[*Client]bool)
			h.byUser = make(map[uuid.UUID]map[*Client]bool)
			h.membership = make(map[*Client]memberInfo)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if !h.stopped {
				if _, ok := h.clients[client]; ok {
					h.leaveRoomLocked(client)
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case req := <-h.joinRoom:
			h.handleJoinRoom(req)
		}
	}
}

// Stop shuts the hub down and closes every client connection. It blocks
// until the run loop has exited.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister detaches a client; safe to call while the hub is stopping.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) handleJoinRoom(req *joinRoomRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || !h.clients[req.client] {
		return
	}

	// Re-joining moves the connection: one room subscription per client.
	h.leaveRoomLocked(req.client)

	if h.rooms[req.roomID] == nil {
		h.rooms[req.roomID] = make(map[*Client]bool)
	}
	h.rooms[req.roomID][req.client] = true

	if h.byUser[req.userID] == nil {
		h.byUser[req.userID] = make(map[*Client]bool)
	}
	h.byUser[req.userID][req.client] = true

	h.membership[req.client] = memberInfo{roomID: req.roomID, userID: req.userID}

	h.logger.WithFields(logrus.Fields{
		"room_id": req.roomID,
		"user_id": req.userID,
	}).Info("client joined room channel")
}

// BroadcastRoomMetrics sends a snapshot to every client subscribed to the
// room. Sends are non-blocking: a client that cannot keep up loses this
// frame, and the next cumulative snapshot supersedes it.
func (h *Hub) BroadcastRoomMetrics(roomID uuid.UUID, snapshot live.RoomMetricsSnapshot) {
	msg, err := NewMessage(MessageTypeRoomMetrics, snapshot)
	if err != nil {
		h.logger.WithError(err).Error("failed to encode room metrics")
		return
	}
	data, _ := json.Marshal(msg)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomID] {
		client.trySend(data)
	}
}

// NotifyRoomFormed announces a freshly matchmade room to every participant
// with a live connection.
func (h *Hub) NotifyRoomFormed(room *domain.DiscussionRoom) {
	participants := room.Participants.Data()
	userIDs := make([]uuid.UUID, len(participants))
	for i, p := range participants {
		userIDs[i] = p.UserID
	}
	h.NotifyMatched(userIDs, QueueMatchedPayload{
		RoomID:          room.ID.String(),
		Topic:           room.Topic,
		DurationSeconds: room.DurationSeconds,
		Participants:    participants,
	})
}

// NotifyMatched tells every connection of the given users that their group
// formed.
func (h *Hub) NotifyMatched(userIDs []uuid.UUID, payload QueueMatchedPayload) {
	msg, err := NewMessage(MessageTypeQueueMatched, payload)
	if err != nil {
		h.logger.WithError(err).Error("failed to encode match notification")
		return
	}
	data, _ := json.Marshal(msg)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range userIDs {
		for client := range h.byUser[userID] {
			client.trySend(data)
		}
	}
}

func (h *Hub) leaveRoomLocked(client *Client) {
	info, ok := h.membership[client]
	if !ok {
		return
	}
	if set := h.rooms[info.roomID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.rooms, info.roomID)
		}
	}
	if set := h.byUser[info.userID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.byUser, info.userID)
		}
	}
	delete(h.membership, client)
}
