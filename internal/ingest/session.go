package ingest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/live"
	"github.com/talkcircle/talkcircle-backend/internal/metrics"
	"github.com/talkcircle/talkcircle-backend/internal/repository"
	"github.com/talkcircle/talkcircle-backend/internal/stt"
)

const (
	// minUtteranceMs floors word-timed utterance durations.
	minUtteranceMs = 250
	// defaultWindowMs is assumed when the upstream sends no word timings.
	defaultWindowMs = 1000

	dialTimeout    = 10 * time.Second
	persistTimeout = 5 * time.Second
	audioBuffer    = 256
)

// Broadcaster fans a snapshot out to a room's subscribers. Delivery is
// best-effort; cumulative snapshots make a dropped frame harmless.
type Broadcaster interface {
	BroadcastRoomMetrics(roomID uuid.UUID, snapshot live.RoomMetricsSnapshot)
}

// Upstream is one speaker's connection to the speech-to-text service.
type Upstream interface {
	Send(frame []byte) error
	Results() <-chan stt.Result
	Close() error
}

// UpstreamDialer opens an Upstream for a new session.
type UpstreamDialer func(ctx context.Context, start stt.StartMessage) (Upstream, error)

// WebsocketDialer dials the real upstream STT websocket at url.
func WebsocketDialer(url string, logger *logrus.Logger) UpstreamDialer {
	return func(ctx context.Context, start stt.StartMessage) (Upstream, error) {
		return stt.Dial(ctx, url, start, logger)
	}
}

// Session ingests one speaker's audio stream for one room: it owns the
// upstream connection, converts final recognition results into utterances,
// persists them off the hot path and pushes updated metric snapshots to the
// room channel. All state is confined to the run loop goroutine.
type Session struct {
	roomID   uuid.UUID
	userID   uuid.UUID
	userName string
	language string
	mimeType string

	dialer      UpstreamDialer
	store       *live.Store
	utterances  repository.UtteranceRepository
	broadcaster Broadcaster
	logger      *logrus.Logger
	now         func() int64

	audio    chan []byte
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newSession(
	roomID, userID uuid.UUID,
	userName, language, mimeType string,
	dialer UpstreamDialer,
	store *live.Store,
	utterances repository.UtteranceRepository,
	broadcaster Broadcaster,
	logger *logrus.Logger,
	now func() int64,
) *Session {
	return &Session{
		roomID:      roomID,
		userID:      userID,
		userName:    userName,
		language:    language,
		mimeType:    mimeType,
		dialer:      dialer,
		store:       store,
		utterances:  utterances,
		broadcaster: broadcaster,
		logger:      logger,
		now:         now,
		audio:       make(chan []byte, audioBuffer),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// PushAudio queues one binary audio frame. Frames are dropped when the
// session cannot keep up; the upstream recognizer tolerates gaps.
func (s *Session) PushAudio(frame []byte) {
	select {
	case s.audio <- frame:
	case <-s.done:
	default:
		s.logger.WithFields(logrus.Fields{
			"room_id": s.roomID,
			"user_id": s.userID,
		}).Debug("audio buffer full, dropping frame")
	}
}

// Stop closes the upstream link and discards buffered audio. Safe to call
// more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// run is the session event loop. Audio arriving before the upstream dial
// completes is buffered in order and flushed once connected. Upstream
// errors leave the session idle rather than failing the room.
func (s *Session) run() {
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()
	defer close(s.done)

	dialCtx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	dialed := make(chan Upstream, 1)
	go func() {
		defer close(dialed)
		up, err := s.dialer(dialCtx, stt.StartMessage{
			RoomID:   s.roomID.String(),
			UserID:   s.userID.String(),
			UserName: s.userName,
			Language: s.language,
			MimeType: s.mimeType,
		})
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"room_id": s.roomID,
				"user_id": s.userID,
			}).Warn("failed to connect to stt upstream")
			return
		}
		dialed <- up
	}()

	var upstream Upstream
	var results <-chan stt.Result
	var pending [][]byte

	for {
		select {
		case up, ok := <-dialed:
			dialed = nil
			if !ok {
				// Dial failed; discard the buffer and stay idle until the
				// client issues a new start.
				pending = nil
				continue
			}
			upstream = up
			results = up.Results()
			for _, frame := range pending {
				if err := upstream.Send(frame); err != nil {
					s.logger.WithError(err).Debug("failed to flush buffered audio")
					break
				}
			}
			pending = nil

		case frame := <-s.audio:
			if upstream == nil {
				// Buffer only while a dial is still in flight; an idle
				// session drops frames instead of growing without bound.
				if dialed != nil {
					pending = append(pending, frame)
					continue
				}
				s.logger.WithFields(logrus.Fields{
					"room_id": s.roomID,
					"user_id": s.userID,
				}).Debug("no stt upstream, dropping audio")
				continue
			}
			if err := upstream.Send(frame); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"room_id": s.roomID,
					"user_id": s.userID,
				}).Debug("failed to send audio upstream")
			}

		case res, ok := <-results:
			if !ok {
				results = nil
				upstream = nil
				s.logger.WithFields(logrus.Fields{
					"room_id": s.roomID,
					"user_id": s.userID,
				}).Info("stt upstream closed, session idle")
				continue
			}
			s.handleResult(res)

		case <-s.stopCh:
			// Abort any in-flight dial and claim a connection that raced
			// with the stop, so it is closed rather than leaked.
			cancel()
			if dialed != nil {
				if up, ok := <-dialed; ok {
					upstream = up
				}
			}
			if upstream != nil {
				upstream.Close()
			}
			return
		}
	}
}

// handleResult turns one final recognition result into an utterance:
// persist (fire-and-forget), fold into the aggregate store, broadcast the
// returned snapshot.
func (s *Session) handleResult(res stt.Result) {
	text := strings.TrimSpace(res.Transcript())
	if !res.IsFinal || text == "" {
		return
	}

	endMs := s.now()
	var startMs int64
	if words := res.Words(); len(words) > 0 {
		durationMs := int64((words[len(words)-1].End - words[0].Start) * 1000)
		if durationMs < minUtteranceMs {
			durationMs = minUtteranceMs
		}
		startMs = endMs - durationMs
	} else {
		startMs = endMs - defaultWindowMs
	}

	metrics.UtterancesFinalized.Inc()

	utterance := &domain.Utterance{
		ID:       uuid.New(),
		RoomID:   s.roomID,
		UserID:   s.userID,
		UserName: s.userName,
		Text:     text,
		StartMs:  startMs,
		EndMs:    endMs,
		Language: s.language,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.utterances.Create(ctx, utterance); err != nil {
			metrics.UtterancePersistFailures.Inc()
			s.logger.WithError(err).WithFields(logrus.Fields{
				"room_id": s.roomID,
				"user_id": s.userID,
			}).Error("failed to persist utterance")
		}
	}()

	snapshot := s.store.ApplyUtterance(s.roomID, s.userID, s.userName, text, startMs, endMs)
	s.broadcaster.BroadcastRoomMetrics(s.roomID, snapshot)
	metrics.SnapshotsBroadcast.Inc()
}
