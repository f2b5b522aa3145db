package stt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 256 * 1024
)

// StartMessage is the session-start control frame sent to the upstream
// speech-to-text service before any audio.
type StartMessage struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Language string `json:"language"`
	MimeType string `json:"mimeType"`
}

// WordTiming is an optional word-level timing in the upstream's time units
// (seconds).
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Alternative struct {
	Transcript string       `json:"transcript"`
	Confidence float64      `json:"confidence"`
	Words      []WordTiming `json:"words"`
}

// Result is one upstream recognition message. Only messages with IsFinal
// set and a non-empty transcript become utterances.
type Result struct {
	Alternatives []Alternative `json:"alternatives"`
	IsFinal      bool          `json:"is_final"`
}

// Transcript returns the best transcript, or "" when none is present.
func (r Result) Transcript() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Transcript
}

// Words returns the best alternative's word timings, if any.
func (r Result) Words() []WordTiming {
	if len(r.Alternatives) == 0 {
		return nil
	}
	return r.Alternatives[0].Words
}

// Client is a websocket connection to the upstream speech-to-text service
// for one speaker's continuous stream. Audio frames go up as binary
// messages; recognition results come down as JSON.
type Client struct {
	conn      *websocket.Conn
	results   chan Result
	done      chan struct{}
	closeOnce sync.Once
	logger    *logrus.Logger
}

// Dial connects to the upstream service and sends the session-start frame.
// The returned client's reader goroutine runs until the connection closes.
func Dial(ctx context.Context, url string, start StartMessage, logger *logrus.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		return nil, err
	}

	c := &Client{
		conn:    conn,
		results: make(chan Result, 16),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go c.readPump()
	return c, nil
}

// Send forwards one binary audio frame upstream.
func (c *Client) Send(frame []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// Results returns the channel of recognition results. It is closed when the
// upstream connection ends for any reason.
func (c *Client) Results() <-chan Result {
	return c.results
}

// Close tears the connection down and releases the read pump even when the
// results buffer is full and nobody is draining it.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

// readPump parses inbound upstream messages. Malformed or non-JSON payloads
// are dropped silently per the ingestion contract.
func (c *Client) readPump() {
	defer close(c.results)
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WithError(err).Debug("upstream stt connection closed")
			}
			return
		}

		var res Result
		if err := json.Unmarshal(data, &res); err != nil {
			continue
		}
		select {
		case c.results <- res:
		case <-c.done:
			return
		}
	}
}
