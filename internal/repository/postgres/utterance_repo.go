package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"gorm.io/gorm"
)

type utteranceRepository struct {
	db *gorm.DB
}

func NewUtteranceRepository(db *gorm.DB) *utteranceRepository {
	return &utteranceRepository{db: db}
}

func (r *utteranceRepository) Create(ctx context.Context, utterance *domain.Utterance) error {
	return r.db.WithContext(ctx).Create(utterance).Error
}

func (r *utteranceRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.Utterance, error) {
	var utterances []domain.Utterance
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("start_ms ASC, created_at ASC").
		Find(&utterances).Error
	if err != nil {
		return nil, err
	}
	return utterances, nil
}
