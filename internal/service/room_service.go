package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/live"
	"github.com/talkcircle/talkcircle-backend/internal/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionEnder stops all ingestion sessions of a room. Implemented by the
// ingestion manager.
type SessionEnder interface {
	StopRoom(roomID uuid.UUID)
}

// RoomService owns the discussion room lifecycle: creation, start, member
// departure and the completion transition that triggers scoring.
type RoomService struct {
	roomRepo      repository.RoomRepository
	utteranceRepo repository.UtteranceRepository
	liveStore     *live.Store
	sessions      SessionEnder
	scoring       *ScoringService
	logger        *logrus.Logger
}

func NewRoomService(
	roomRepo repository.RoomRepository,
	utteranceRepo repository.UtteranceRepository,
	liveStore *live.Store,
	sessions SessionEnder,
	scoring *ScoringService,
	logger *logrus.Logger,
) *RoomService {
	return &RoomService{
		roomRepo:      roomRepo,
		utteranceRepo: utteranceRepo,
		liveStore:     liveStore,
		sessions:      sessions,
		scoring:       scoring,
		logger:        logger,
	}
}

type CreateRoomRequest struct {
	Mode            domain.RoomMode
	Topic           string
	DurationSeconds int
	Participants    []domain.Participant
}

func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest) (*domain.DiscussionRoom, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Mode == "" {
		req.Mode = domain.RoomModePractice
	}
	if req.DurationSeconds <= 0 {
		req.DurationSeconds = 600
	}
	for i := range req.Participants {
		if req.Participants[i].UserID == uuid.Nil {
			return nil, domain.ErrInvalidUserID
		}
		if req.Participants[i].JoinedAt.IsZero() {
			req.Participants[i].JoinedAt = time.Now()
		}
	}

	room := &domain.DiscussionRoom{
		ID:              uuid.New(),
		Mode:            req.Mode,
		Topic:           strings.TrimSpace(req.Topic),
		DurationSeconds: req.DurationSeconds,
		Status:          domain.RoomStatusLobby,
		Participants:    datatypes.NewJSONType(req.Participants),
		DepartedUsers:   datatypes.NewJSONType([]uuid.UUID{}),
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"room_id": room.ID,
		"mode":    room.Mode,
		"topic":   room.Topic,
	}).Info("room created")
	return room, nil
}

func (s *RoomService) Get(ctx context.Context, roomID uuid.UUID) (*domain.DiscussionRoom, error) {
	return s.getRoom(ctx, roomID)
}

// Start moves a lobby room to active and primes the live aggregate store
// with its topic. Starting an already active room is a no-op.
func (s *RoomService) Start(ctx context.Context, roomID uuid.UUID) (*domain.DiscussionRoom, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	switch room.Status {
	case domain.RoomStatusActive:
		return room, nil
	case domain.RoomStatusCompleted:
		return nil, domain.ErrRoomCompleted
	}

	now := time.Now()
	room.Status = domain.RoomStatusActive
	room.StartedAt = &now
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}

	s.liveStore.SetTopic(room.ID, room.Topic)

	s.logger.WithField("room_id", room.ID).Info("room started")
	return room, nil
}

// Leave marks a participant as departed. When the last participant leaves,
// the room completes: ingestion sessions stop, live aggregates are
// discarded and the final score report is computed. Leaving twice is a
// no-op. The departure itself runs under a row lock in the repository, so
// concurrent leaves on different instances all land.
func (s *RoomService) Leave(ctx context.Context, roomID, userID uuid.UUID) (*domain.DiscussionRoom, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	if room.Status == domain.RoomStatusCompleted {
		return room, nil
	}

	room, changed, err := s.roomRepo.Depart(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return room, nil
	}

	if room.Status == domain.RoomStatusCompleted {
		s.sessions.StopRoom(room.ID)
		s.liveStore.EndRoom(room.ID)
		s.logger.WithField("room_id", room.ID).Info("room completed")

		if _, err := s.scoring.ScoreRoom(ctx, room.ID); err != nil {
			if errors.Is(err, domain.ErrEmptyTranscript) {
				s.logger.WithField("room_id", room.ID).Info("room completed without utterances, no report")
			} else {
				s.logger.WithError(err).WithField("room_id", room.ID).Error("failed to score completed room")
			}
		}
	}

	return room, nil
}

// Delete removes a room that never started.
func (s *RoomService) Delete(ctx context.Context, roomID uuid.UUID) error {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status != domain.RoomStatusLobby {
		return domain.ErrRoomNotInLobby
	}
	return s.roomRepo.Delete(ctx, roomID)
}

// Transcript returns the room's persisted utterances in timestamp order.
func (s *RoomService) Transcript(ctx context.Context, roomID uuid.UUID) ([]domain.Utterance, error) {
	if _, err := s.getRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.utteranceRepo.ListByRoom(ctx, roomID)
}

// LiveMetrics returns the current in-memory snapshot for an active room.
func (s *RoomService) LiveMetrics(ctx context.Context, roomID uuid.UUID) (*live.RoomMetricsSnapshot, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.RoomStatusActive {
		return nil, domain.ErrRoomNotActive
	}
	snapshot := s.liveStore.Snapshot(roomID)
	return &snapshot, nil
}

func (s *RoomService) getRoom(ctx context.Context, roomID uuid.UUID) (*domain.DiscussionRoom, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}
