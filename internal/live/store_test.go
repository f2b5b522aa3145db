package live_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkcircle/talkcircle-backend/internal/features"
	"github.com/talkcircle/talkcircle-backend/internal/live"
	"github.com/talkcircle/talkcircle-backend/internal/scoring"
)

func newStore() *live.Store {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return live.NewStore(features.NewLexiconExtractor(), scoring.DefaultTuning(), logger)
}

func TestStore_ApplyUtteranceBuildsSnapshot(t *testing.T) {
	store := newStore()
	roomID := uuid.New()
	alice := uuid.New()

	store.SetTopic(roomID, "remote work")
	snap := store.ApplyUtterance(roomID, alice, "alice", "remote work is here to stay", 0, 4000)

	require.Len(t, snap.PerUser, 1)
	assert.Equal(t, roomID, snap.RoomID)
	assert.Equal(t, alice, snap.LastSpeakerUserID)
	assert.Equal(t, int64(4000), snap.TotalTalkMs)
	assert.Equal(t, "alice", snap.PerUser[0].Name)
	assert.Equal(t, 1, snap.PerUser[0].Turns)
	assert.InDelta(t, 1.0, snap.PerUser[0].OnTopicAvg, 1e-9)
}

func TestStore_RoomsAreIsolated(t *testing.T) {
	store := newStore()
	roomA := uuid.New()
	roomB := uuid.New()
	speaker := uuid.New()

	store.ApplyUtterance(roomA, speaker, "alice", "hello", 0, 2000)
	snapB := store.Snapshot(roomB)

	assert.Empty(t, snapB.PerUser)
	assert.Zero(t, snapB.TotalTalkMs)
}

func TestStore_EndRoomDiscardsAggregates(t *testing.T) {
	store := newStore()
	roomID := uuid.New()

	store.ApplyUtterance(roomID, uuid.New(), "alice", "hello", 0, 2000)
	store.EndRoom(roomID)

	snap := store.Snapshot(roomID)
	assert.Empty(t, snap.PerUser)
}

func TestStore_ConcurrentSameRoomSerialized(t *testing.T) {
	store := newStore()
	roomID := uuid.New()

	const speakers = 8
	const turnsEach = 25

	var wg sync.WaitGroup
	for i := 0; i < speakers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := uuid.New()
			for j := 0; j < turnsEach; j++ {
				base := int64(n*1000000 + j*10000)
				store.ApplyUtterance(roomID, userID, "speaker", "a few words here", base, base+3000)
			}
		}(i)
	}
	wg.Wait()

	snap := store.Snapshot(roomID)
	require.Len(t, snap.PerUser, speakers)

	totalTurns := 0
	var totalTalk int64
	for _, u := range snap.PerUser {
		totalTurns += u.Turns
		totalTalk += u.TalkMs
	}
	assert.Equal(t, speakers*turnsEach, totalTurns, "no lost updates under concurrency")
	assert.Equal(t, int64(speakers*turnsEach*3000), totalTalk)
	assert.Equal(t, totalTalk, snap.TotalTalkMs)
}

func TestStore_SnapshotOrderIsStable(t *testing.T) {
	store := newStore()
	roomID := uuid.New()

	for i := 0; i < 5; i++ {
		store.ApplyUtterance(roomID, uuid.New(), "speaker", "hello there", int64(i*10000), int64(i*10000+2000))
	}

	first := store.Snapshot(roomID)
	second := store.Snapshot(roomID)
	assert.Equal(t, first, second)
}
