package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
)

type RoomRepository interface {
	Create(ctx context.Context, room *domain.DiscussionRoom) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DiscussionRoom, error)
	Update(ctx context.Context, room *domain.DiscussionRoom) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Depart records userID as departed under a row lock and completes the
	// room once every participant has left, so concurrent departures on
	// different instances cannot lose each other. It reports whether this
	// call changed the room.
	Depart(ctx context.Context, roomID, userID uuid.UUID) (*domain.DiscussionRoom, bool, error)
	// ListActiveByParticipant returns active rooms whose participant list
	// contains userID, oldest first.
	ListActiveByParticipant(ctx context.Context, userID uuid.UUID) ([]*domain.DiscussionRoom, error)
}

type TicketRepository interface {
	// CreateIfAbsent inserts a ticket unless one already exists for the
	// user. It reports whether a new ticket was created.
	CreateIfAbsent(ctx context.Context, ticket *domain.WaitingTicket) (bool, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.WaitingTicket, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	// ListWaiting returns all tickets in FIFO order (joined_at, seq).
	ListWaiting(ctx context.Context) ([]*domain.WaitingTicket, error)
}

// MatchmakingRepository owns the one operation that needs cross-process
// atomicity: consuming the oldest tickets and creating their room in a
// single transaction.
type MatchmakingRepository interface {
	// FormGroup atomically selects the oldest groupSize tickets, creates an
	// active global room with those users as participants and deletes
	// exactly those tickets. It returns (nil, nil) when fewer than
	// groupSize tickets are waiting.
	FormGroup(ctx context.Context, groupSize int, topic string, durationSeconds int) (*domain.DiscussionRoom, error)
}

type UtteranceRepository interface {
	Create(ctx context.Context, utterance *domain.Utterance) error
	// ListByRoom returns a room's transcript ordered by (start_ms, created_at).
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.Utterance, error)
}

type ScoreReportRepository interface {
	// Create persists a report; a report already existing for the room is
	// left untouched.
	Create(ctx context.Context, report *domain.ScoreReport) error
	GetByRoomID(ctx context.Context, roomID uuid.UUID) (*domain.ScoreReport, error)
}

type Repositories struct {
	Room        RoomRepository
	Ticket      TicketRepository
	Matchmaking MatchmakingRepository
	Utterance   UtteranceRepository
	ScoreReport ScoreReportRepository
}
