package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/config"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/live"
	"github.com/talkcircle/talkcircle-backend/internal/metrics"
	"github.com/talkcircle/talkcircle-backend/internal/repository"
	"gorm.io/gorm"
)

// MatchNotifier pushes group-formed notifications to the connections of the
// matched users. Implemented by the websocket hub.
type MatchNotifier interface {
	NotifyRoomFormed(room *domain.DiscussionRoom)
}

type QueueState string

const (
	QueueStateWaiting QueueState = "waiting"
	QueueStateMatched QueueState = "matched"
	QueueStateIdle    QueueState = "idle"
)

// QueueStatus is a user's current position in the matchmaking flow.
type QueueStatus struct {
	State    QueueState             `json:"state"`
	Position int                    `json:"position,omitempty"`
	Room     *domain.DiscussionRoom `json:"room,omitempty"`
}

// MatchmakingService manages the global waiting queue. Group formation is
// delegated to the matchmaking repository's transactional dequeue, so any
// number of instances can run the same flow concurrently.
type MatchmakingService struct {
	ticketRepo      repository.TicketRepository
	matchmakingRepo repository.MatchmakingRepository
	roomRepo        repository.RoomRepository
	liveStore       *live.Store
	notifier        MatchNotifier
	logger          *logrus.Logger
	cfg             *config.Config
}

func NewMatchmakingService(
	ticketRepo repository.TicketRepository,
	matchmakingRepo repository.MatchmakingRepository,
	roomRepo repository.RoomRepository,
	liveStore *live.Store,
	notifier MatchNotifier,
	cfg *config.Config,
	logger *logrus.Logger,
) *MatchmakingService {
	return &MatchmakingService{
		ticketRepo:      ticketRepo,
		matchmakingRepo: matchmakingRepo,
		roomRepo:        roomRepo,
		liveStore:       liveStore,
		notifier:        notifier,
		logger:          logger,
		cfg:             cfg,
	}
}

// Join enqueues the user and attempts group formation. Joining is
// idempotent: a user already waiting keeps their original position, and a
// user already in an active room is returned that room instead of a ticket.
func (s *MatchmakingService) Join(ctx context.Context, userID uuid.UUID, name string) (*QueueStatus, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrInvalidUserID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	if room, err := s.activeRoomFor(ctx, userID); err != nil {
		return nil, err
	} else if room != nil {
		return &QueueStatus{State: QueueStateMatched, Room: room}, nil
	}

	created, err := s.ticketRepo.CreateIfAbsent(ctx, &domain.WaitingTicket{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		JoinedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !created {
		s.logger.WithField("user_id", userID).Debug("user already waiting, keeping original ticket")
	}

	matched, err := s.formGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	if matched != nil {
		return &QueueStatus{State: QueueStateMatched, Room: matched}, nil
	}

	position, err := s.position(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &QueueStatus{State: QueueStateWaiting, Position: position}, nil
}

// Status reports whether the user is waiting, matched into an active room,
// or neither.
func (s *MatchmakingService) Status(ctx context.Context, userID uuid.UUID) (*QueueStatus, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrInvalidUserID
	}

	// Room membership is authoritative: a user placed into an active room
	// while still holding a ticket is matched, not waiting.
	if room, err := s.activeRoomFor(ctx, userID); err != nil {
		return nil, err
	} else if room != nil {
		return &QueueStatus{State: QueueStateMatched, Room: room}, nil
	}

	position, err := s.position(ctx, userID)
	if err != nil {
		return nil, err
	}
	if position > 0 {
		return &QueueStatus{State: QueueStateWaiting, Position: position}, nil
	}

	return &QueueStatus{State: QueueStateIdle}, nil
}

// Leave withdraws the user's ticket. Leaving without a ticket is a no-op.
func (s *MatchmakingService) Leave(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return domain.ErrInvalidUserID
	}
	if err := s.ticketRepo.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	s.refreshQueueDepth(ctx)
	return nil
}

// formGroups drains the queue into rooms while enough tickets are waiting,
// and returns the room that absorbed userID, if any.
func (s *MatchmakingService) formGroups(ctx context.Context, userID uuid.UUID) (*domain.DiscussionRoom, error) {
	var matched *domain.DiscussionRoom
	for {
		room, err := s.matchmakingRepo.FormGroup(ctx, s.cfg.GroupSize, s.cfg.DefaultTopic, s.cfg.DefaultDurationSeconds)
		if err != nil {
			return nil, err
		}
		if room == nil {
			break
		}

		s.liveStore.SetTopic(room.ID, room.Topic)
		if s.notifier != nil {
			s.notifier.NotifyRoomFormed(room)
		}
		metrics.GroupsFormed.Inc()

		s.logger.WithFields(logrus.Fields{
			"room_id":      room.ID,
			"participants": len(room.Participants.Data()),
		}).Info("matchmaking group formed")

		if room.HasParticipant(userID) {
			matched = room
		}
	}
	s.refreshQueueDepth(ctx)
	return matched, nil
}

// position returns the user's 1-based FIFO position, or 0 when the user has
// no ticket.
func (s *MatchmakingService) position(ctx context.Context, userID uuid.UUID) (int, error) {
	waiting, err := s.ticketRepo.ListWaiting(ctx)
	if err != nil {
		return 0, err
	}
	metrics.QueueDepth.Set(float64(len(waiting)))
	for i, ticket := range waiting {
		if ticket.UserID == userID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// activeRoomFor returns the oldest active room the user is still part of.
func (s *MatchmakingService) activeRoomFor(ctx context.Context, userID uuid.UUID) (*domain.DiscussionRoom, error) {
	rooms, err := s.roomRepo.ListActiveByParticipant(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	for _, room := range rooms {
		if !room.HasDeparted(userID) {
			return room, nil
		}
	}
	return nil, nil
}

func (s *MatchmakingService) refreshQueueDepth(ctx context.Context) {
	waiting, err := s.ticketRepo.ListWaiting(ctx)
	if err != nil {
		return
	}
	metrics.QueueDepth.Set(float64(len(waiting)))
}
