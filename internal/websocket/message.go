package websocket

import (
	"encoding/json"
	"time"

	"github.com/talkcircle/talkcircle-backend/internal/domain"
)

type MessageType string

const (
	// Client to Server
	MessageTypeJoinRoom    MessageType = "join-room"
	MessageTypeStreamStart MessageType = "stream-start"
	MessageTypeStreamStop  MessageType = "stream-stop"

	// Server to Client
	MessageTypeRoomMetrics  MessageType = "room-metrics"
	MessageTypeQueueMatched MessageType = "queue-matched"
	MessageTypeError        MessageType = "error"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Client to Server payloads

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type StreamStartPayload struct {
	Language string `json:"language"`
	MimeType string `json:"mimeType"`
}

// Server to Client payloads

// QueueMatchedPayload tells a waiting user their group formed. Participants
// mirror the created room's roster.
type QueueMatchedPayload struct {
	RoomID          string               `json:"roomId"`
	Topic           string               `json:"topic"`
	DurationSeconds int                  `json:"durationSeconds"`
	Participants    []domain.Participant `json:"participants"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
