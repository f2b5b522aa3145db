package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/features"
	"github.com/talkcircle/talkcircle-backend/internal/live"
	"github.com/talkcircle/talkcircle-backend/internal/repository/postgres"
	"github.com/talkcircle/talkcircle-backend/internal/service"
	"github.com/talkcircle/talkcircle-backend/internal/testutil"
)

func newMatchmakingService(t *testing.T, testDB *testutil.TestDB) *service.MatchmakingService {
	t.Helper()
	cfg := testutil.TestConfig()
	log := testutil.TestLogger()
	repos := postgres.NewRepositories(testDB.DB)
	liveStore := live.NewStore(features.NewLexiconExtractor(), cfg.Tuning(), log)
	return service.NewMatchmakingService(repos.Ticket, repos.Matchmaking, repos.Room, liveStore, nil, cfg, log)
}

func TestMatchmakingService_JoinValidation(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	svc := newMatchmakingService(t, testDB)
	ctx := context.Background()

	_, err := svc.Join(ctx, uuid.Nil, "ada")
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)

	_, err = svc.Join(ctx, uuid.New(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestMatchmakingService_FIFOGroupFormation(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	svc := newMatchmakingService(t, testDB)
	ctx := context.Background()

	first, second, third := uuid.New(), uuid.New(), uuid.New()

	status, err := svc.Join(ctx, first, "ada")
	require.NoError(t, err)
	assert.Equal(t, service.QueueStateWaiting, status.State)
	assert.Equal(t, 1, status.Position)

	status, err = svc.Join(ctx, second, "ben")
	require.NoError(t, err)
	assert.Equal(t, service.QueueStateWaiting, status.State)
	assert.Equal(t, 2, status.Position)

	// Third join completes the group.
	status, err = svc.Join(ctx, third, "cal")
	require.NoError(t, err)
	require.Equal(t, service.QueueStateMatched, status.State)
	require.NotNil(t, status.Room)
	assert.Equal(t, domain.RoomStatusActive, status.Room.Status)
	assert.Equal(t, domain.RoomModeGlobal, status.Room.Mode)
	assert.Equal(t, "remote work", status.Room.Topic)

	participants := status.Room.Participants.Data()
	require.Len(t, participants, 3)
	// Roster keeps queue order.
	assert.Equal(t, first, participants[0].UserID)
	assert.Equal(t, second, participants[1].UserID)
	assert.Equal(t, third, participants[2].UserID)

	// The queue drained; earlier members now report matched.
	for _, userID := range []uuid.UUID{first, second} {
		status, err := svc.Status(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, service.QueueStateMatched, status.State)
		require.NotNil(t, status.Room)
	}

	var tickets []domain.WaitingTicket
	require.NoError(t, testDB.DB.Find(&tickets).Error)
	assert.Empty(t, tickets)
}

func TestMatchmakingService_JoinIsIdempotent(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	svc := newMatchmakingService(t, testDB)
	ctx := context.Background()

	userID := uuid.New()

	status, err := svc.Join(ctx, userID, "ada")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Position)

	// A second join keeps the original ticket and position.
	status, err = svc.Join(ctx, userID, "ada")
	require.NoError(t, err)
	assert.Equal(t, service.QueueStateWaiting, status.State)
	assert.Equal(t, 1, status.Position)

	var tickets []domain.WaitingTicket
	require.NoError(t, testDB.DB.Find(&tickets).Error)
	assert.Len(t, tickets, 1)
}

func TestMatchmakingService_JoinWhileMatchedReturnsRoom(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	svc := newMatchmakingService(t, testDB)
	ctx := context.Background()

	members := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i, userID := range members {
		_, err := svc.Join(ctx, userID, "user")
		require.NoError(t, err, "join %d", i)
	}

	// Re-joining from inside an active room does not enqueue a new ticket.
	status, err := svc.Join(ctx, members[0], "user")
	require.NoError(t, err)
	assert.Equal(t, service.QueueStateMatched, status.State)
	require.NotNil(t, status.Room)

	var tickets []domain.WaitingTicket
	require.NoError(t, testDB.DB.Find(&tickets).Error)
	assert.Empty(t, tickets)
}

func TestMatchmakingService_StatusPrefersActiveRoom(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	svc := newMatchmakingService(t, testDB)
	ctx := context.Background()

	ada := testutil.NewParticipant("ada")

	status, err := svc.Join(ctx, ada.UserID, "ada")
	require.NoError(t, err)
	require.Equal(t, service.QueueStateWaiting, status.State)

	// The user is placed into an active room (room creation path) while
	// still holding a ticket; room membership wins over the stale ticket.
	room := testutil.NewActiveRoom("remote work", ada)
	require.NoError(t, testDB.DB.Create(room).Error)

	status, err = svc.Status(ctx, ada.UserID)
	require.NoError(t, err)
	assert.Equal(t, service.QueueStateMatched, status.State)
	require.NotNil(t, status.Room)
	assert.Equal(t, room.ID, status.Room.ID)
}

func TestMatchmakingService_Leave(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	svc := newMatchmakingService(t, testDB)
	ctx := context.Background()

	userID := uuid.New()
	_, err := svc.Join(ctx, userID, "ada")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, userID))

	status, err := svc.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, service.QueueStateIdle, status.State)

	// Leaving again is a no-op.
	require.NoError(t, svc.Leave(ctx, userID))
}

func TestMatchmakingService_ConcurrentJoins(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	svc := newMatchmakingService(t, testDB)
	ctx := context.Background()

	const users = 9 // three full groups at GroupSize 3

	var wg sync.WaitGroup
	errs := make(chan error, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Join(ctx, uuid.New(), "user")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var rooms []domain.DiscussionRoom
	require.NoError(t, testDB.DB.Find(&rooms).Error)
	require.Len(t, rooms, 3, "every user lands in exactly one room")

	seen := make(map[uuid.UUID]bool)
	for _, room := range rooms {
		participants := room.Participants.Data()
		assert.Len(t, participants, 3)
		for _, p := range participants {
			assert.False(t, seen[p.UserID], "user %s assigned twice", p.UserID)
			seen[p.UserID] = true
		}
	}
	assert.Len(t, seen, users)

	var tickets []domain.WaitingTicket
	require.NoError(t, testDB.DB.Find(&tickets).Error)
	assert.Empty(t, tickets)
}
