package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type scoreReportRepository struct {
	db *gorm.DB
}

func NewScoreReportRepository(db *gorm.DB) *scoreReportRepository {
	return &scoreReportRepository{db: db}
}

func (r *scoreReportRepository) Create(ctx context.Context, report *domain.ScoreReport) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			DoNothing: true,
		}).
		Create(report).Error
}

func (r *scoreReportRepository) GetByRoomID(ctx context.Context, roomID uuid.UUID) (*domain.ScoreReport, error) {
	var report domain.ScoreReport
	err := r.db.WithContext(ctx).First(&report, "room_id = ?", roomID).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}
