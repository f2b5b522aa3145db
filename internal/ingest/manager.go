package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/live"
	"github.com/talkcircle/talkcircle-backend/internal/repository"
)

type sessionKey struct {
	roomID uuid.UUID
	userID uuid.UUID
}

// Manager owns all ingestion sessions, one per (room, user). It replaces
// ambient per-process state: sessions are created on stream-start, torn
// down on stream-stop and when their room ends.
type Manager struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session

	dialer      UpstreamDialer
	store       *live.Store
	utterances  repository.UtteranceRepository
	broadcaster Broadcaster
	logger      *logrus.Logger
	now         func() int64
}

func NewManager(
	dialer UpstreamDialer,
	store *live.Store,
	utterances repository.UtteranceRepository,
	broadcaster Broadcaster,
	logger *logrus.Logger,
) *Manager {
	return &Manager{
		sessions:    make(map[sessionKey]*Session),
		dialer:      dialer,
		store:       store,
		utterances:  utterances,
		broadcaster: broadcaster,
		logger:      logger,
		now:         func() int64 { return time.Now().UnixMilli() },
	}
}

// Start opens an ingestion session for the speaker. An existing session for
// the same (room, user) is stopped first: a new start is the client-driven
// reconnect path.
func (m *Manager) Start(roomID, userID uuid.UUID, userName, language, mimeType string) {
	key := sessionKey{roomID: roomID, userID: userID}

	m.mu.Lock()
	if old, ok := m.sessions[key]; ok {
		old.Stop()
	}
	session := newSession(roomID, userID, userName, language, mimeType,
		m.dialer, m.store, m.utterances, m.broadcaster, m.logger, m.now)
	m.sessions[key] = session
	m.mu.Unlock()

	go session.run()

	m.logger.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": userID,
	}).Info("ingestion session started")
}

// PushAudio routes one audio frame to the speaker's session. Frames for
// unknown sessions are dropped.
func (m *Manager) PushAudio(roomID, userID uuid.UUID, frame []byte) {
	m.mu.Lock()
	session, ok := m.sessions[sessionKey{roomID: roomID, userID: userID}]
	m.mu.Unlock()
	if !ok {
		return
	}
	session.PushAudio(frame)
}

// Stop ends the speaker's session and discards any buffered audio.
func (m *Manager) Stop(roomID, userID uuid.UUID) {
	key := sessionKey{roomID: roomID, userID: userID}

	m.mu.Lock()
	session, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	if ok {
		session.Stop()
		m.logger.WithFields(logrus.Fields{
			"room_id": roomID,
			"user_id": userID,
		}).Info("ingestion session stopped")
	}
}

// StopRoom ends every session of a room, called when the room completes.
func (m *Manager) StopRoom(roomID uuid.UUID) {
	m.mu.Lock()
	var stopped []*Session
	for key, session := range m.sessions {
		if key.roomID == roomID {
			stopped = append(stopped, session)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, session := range stopped {
		session.Stop()
	}
}
