package live

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/features"
	"github.com/talkcircle/talkcircle-backend/internal/scoring"
)

// SpeakerMetrics is one speaker's row in a broadcast snapshot.
type SpeakerMetrics struct {
	UserID         uuid.UUID `json:"userId"`
	Name           string    `json:"name"`
	TalkMs         int64     `json:"talkMs"`
	Turns          int       `json:"turns"`
	Words          int       `json:"words"`
	Fillers        int       `json:"fillers"`
	Interruptions  int       `json:"interruptions"`
	CollabCues     int       `json:"collabCues"`
	LeadershipCues int       `json:"leadershipCues"`
	WPM            float64   `json:"wpm"`
	SentimentAvg   float64   `json:"sentimentAvg"`
	OnTopicAvg     float64   `json:"onTopicAvg"`
	LastText       string    `json:"lastText"`
}

// RoomMetricsSnapshot is a point-in-time summary of all speakers in a room,
// derived on demand and never stored.
type RoomMetricsSnapshot struct {
	RoomID            uuid.UUID        `json:"roomId"`
	PerUser           []SpeakerMetrics `json:"perUser"`
	LastSpeakerUserID uuid.UUID        `json:"lastSpeakerUserId"`
	TotalTalkMs       int64            `json:"totalTalkMs"`
}

type roomState struct {
	mu  sync.Mutex
	acc *scoring.Accumulator
}

// Store owns the transient per-room speaker aggregates. Utterances for the
// same room are serialized through a per-room lock; different rooms proceed
// in parallel with no shared state. Aggregates are discarded when a room's
// live session ends; the durable transcript allows recomputation.
type Store struct {
	mu        sync.RWMutex
	rooms     map[uuid.UUID]*roomState
	extractor features.Extractor
	tuning    scoring.Tuning
	logger    *logrus.Logger
}

func NewStore(extractor features.Extractor, tuning scoring.Tuning, logger *logrus.Logger) *Store {
	return &Store{
		rooms:     make(map[uuid.UUID]*roomState),
		extractor: extractor,
		tuning:    tuning,
		logger:    logger,
	}
}

// SetTopic registers the topic used for on-topic scoring of a room's
// utterances. Creating the room state up front is optional; ApplyUtterance
// creates it lazily with an empty topic otherwise.
func (s *Store) SetTopic(roomID uuid.UUID, topic string) {
	state := s.room(roomID, topic)
	state.mu.Lock()
	state.acc.Topic = topic
	state.mu.Unlock()
}

// ApplyUtterance folds one finalized utterance into the room's aggregates
// and returns the updated snapshot for broadcast. Effectively atomic per
// room: concurrent finalizations for one room cannot interleave.
func (s *Store) ApplyUtterance(roomID, userID uuid.UUID, userName, text string, startMs, endMs int64) RoomMetricsSnapshot {
	state := s.room(roomID, "")

	state.mu.Lock()
	defer state.mu.Unlock()

	state.acc.Apply(userID, userName, text, startMs, endMs)
	return s.snapshotLocked(roomID, state)
}

// Snapshot returns the current metrics for a room without mutating it.
// The zero snapshot is returned for unknown rooms.
func (s *Store) Snapshot(roomID uuid.UUID) RoomMetricsSnapshot {
	s.mu.RLock()
	state, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if !ok {
		return RoomMetricsSnapshot{RoomID: roomID}
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return s.snapshotLocked(roomID, state)
}

// EndRoom discards a room's in-memory aggregates.
func (s *Store) EndRoom(roomID uuid.UUID) {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()

	s.logger.WithField("room_id", roomID).Debug("discarded live aggregates")
}

func (s *Store) room(roomID uuid.UUID, topic string) *roomState {
	s.mu.RLock()
	state, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if ok {
		return state
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok = s.rooms[roomID]; ok {
		return state
	}
	state = &roomState{acc: scoring.NewAccumulator(topic, s.extractor, s.tuning)}
	s.rooms[roomID] = state
	return state
}

// snapshotLocked builds a snapshot; callers hold the room lock. Rows are
// ordered by ascending userID for stable output.
func (s *Store) snapshotLocked(roomID uuid.UUID, state *roomState) RoomMetricsSnapshot {
	snap := RoomMetricsSnapshot{
		RoomID:            roomID,
		LastSpeakerUserID: state.acc.LastSpeaker,
		TotalTalkMs:       state.acc.TotalTalkMs(),
		PerUser:           make([]SpeakerMetrics, 0, len(state.acc.PerUser)),
	}

	for _, userID := range sortedKeys(state.acc.PerUser) {
		agg := state.acc.PerUser[userID]
		snap.PerUser = append(snap.PerUser, SpeakerMetrics{
			UserID:         userID,
			Name:           agg.UserName,
			TalkMs:         agg.TalkMs,
			Turns:          agg.Turns,
			Words:          agg.Words,
			Fillers:        agg.Fillers,
			Interruptions:  agg.Interruptions,
			CollabCues:     agg.CollabCues,
			LeadershipCues: agg.LeadershipCues,
			WPM:            agg.AvgWPM(),
			SentimentAvg:   agg.SentimentAvg(),
			OnTopicAvg:     agg.OnTopicAvg(),
			LastText:       agg.LastText,
		})
	}

	return snap
}

func sortedKeys(m map[uuid.UUID]*scoring.Aggregate) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}
