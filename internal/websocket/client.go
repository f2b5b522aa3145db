package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Client is one websocket connection. Text frames carry JSON control
// messages; binary frames carry audio for the client's active stream.
// Identity fields are written only by the read pump; the hub reads them
// after the connection has unregistered.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *logrus.Logger

	userID    uuid.UUID
	userName  string
	roomID    uuid.UUID
	joined    bool
	streaming bool
}

func NewClient(hub *Hub, conn *websocket.Conn, logger *logrus.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: logger,
	}
}

func (c *Client) ReadPump() {
	defer func() {
		// A dropped connection implies stream end.
		if c.streaming {
			c.hub.streams.Stop(c.roomID, c.userID)
			c.streaming = false
		}
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Debug("websocket read error")
			}
			break
		}

		if msgType == websocket.BinaryMessage {
			if c.streaming {
				c.hub.streams.PushAudio(c.roomID, c.userID, data)
			}
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("INVALID_MESSAGE", "Malformed message")
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeJoinRoom:
		var payload JoinRoomPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError("INVALID_PAYLOAD", "Invalid join room payload")
			return
		}
		roomID, err := uuid.Parse(payload.RoomID)
		if err != nil {
			c.sendError("INVALID_ROOM_ID", "roomId must be a UUID")
			return
		}
		userID, err := uuid.Parse(payload.UserID)
		if err != nil {
			c.sendError("INVALID_USER_ID", "userId must be a UUID")
			return
		}

		// An active stream does not follow the connection to a new room.
		if c.streaming {
			c.hub.streams.Stop(c.roomID, c.userID)
			c.streaming = false
		}
		c.roomID = roomID
		c.userID = userID
		c.userName = payload.UserName
		c.joined = true

		select {
		case c.hub.joinRoom <- &joinRoomRequest{
			client:   c,
			roomID:   roomID,
			userID:   userID,
			userName: payload.UserName,
		}:
		case <-c.hub.done:
		}

	case MessageTypeStreamStart:
		if !c.joined {
			c.sendError("NOT_IN_ROOM", "Join a room before streaming")
			return
		}
		var payload StreamStartPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError("INVALID_PAYLOAD", "Invalid stream start payload")
			return
		}
		if payload.Language == "" {
			payload.Language = "en"
		}
		c.streaming = true
		c.hub.streams.Start(c.roomID, c.userID, c.userName, payload.Language, payload.MimeType)

	case MessageTypeStreamStop:
		if c.streaming {
			c.hub.streams.Stop(c.roomID, c.userID)
			c.streaming = false
		}

	default:
		c.sendError("UNKNOWN_TYPE", "Unknown message type")
	}
}

func (c *Client) sendError(code, message string) {
	msg, _ := NewMessage(MessageTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
	data, _ := json.Marshal(msg)
	c.trySend(data)
}

// trySend queues a frame without blocking; slow consumers lose frames
// rather than stalling broadcasts.
func (c *Client) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}
