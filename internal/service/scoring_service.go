package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/repository"
	"github.com/talkcircle/talkcircle-backend/internal/scoring"
	"gorm.io/gorm"
)

// ScoringService turns persisted transcripts into group score reports.
type ScoringService struct {
	roomRepo      repository.RoomRepository
	utteranceRepo repository.UtteranceRepository
	reportRepo    repository.ScoreReportRepository
	scorer        *scoring.Scorer
	logger        *logrus.Logger
}

func NewScoringService(
	roomRepo repository.RoomRepository,
	utteranceRepo repository.UtteranceRepository,
	reportRepo repository.ScoreReportRepository,
	scorer *scoring.Scorer,
	logger *logrus.Logger,
) *ScoringService {
	return &ScoringService{
		roomRepo:      roomRepo,
		utteranceRepo: utteranceRepo,
		reportRepo:    reportRepo,
		scorer:        scorer,
		logger:        logger,
	}
}

// ScoreRoom recomputes scores from the room's transcript. For completed
// rooms the result is persisted; the first persisted report for a room
// wins, so recomputation never rewrites history.
func (s *ScoringService) ScoreRoom(ctx context.Context, roomID uuid.UUID) (*scoring.GroupScore, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	utterances, err := s.utteranceRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(utterances) == 0 {
		return nil, domain.ErrEmptyTranscript
	}

	result := s.scorer.Score(utterances, room.Participants.Data(), room.Topic)

	if room.Status == domain.RoomStatusCompleted {
		if err := s.persist(ctx, roomID, room.Topic, &result); err != nil {
			s.logger.WithError(err).WithField("room_id", roomID).Error("failed to persist score report")
		}
	}

	return &result, nil
}

// GetScores returns the room's score report, preferring the persisted one
// and computing from the transcript otherwise.
func (s *ScoringService) GetScores(ctx context.Context, roomID uuid.UUID) (*scoring.GroupScore, error) {
	report, err := s.reportRepo.GetByRoomID(ctx, roomID)
	if err == nil {
		var result scoring.GroupScore
		if err := json.Unmarshal(report.Scores, &result); err == nil {
			return &result, nil
		}
		s.logger.WithField("room_id", roomID).Warn("stored score report is unreadable, recomputing")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return s.ScoreRoom(ctx, roomID)
}

func (s *ScoringService) persist(ctx context.Context, roomID uuid.UUID, topic string, result *scoring.GroupScore) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.reportRepo.Create(ctx, &domain.ScoreReport{
		ID:     uuid.New(),
		RoomID: roomID,
		Topic:  topic,
		Scores: data,
	})
}
