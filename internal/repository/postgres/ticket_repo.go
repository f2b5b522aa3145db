package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *ticketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) CreateIfAbsent(ctx context.Context, ticket *domain.WaitingTicket) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(ticket)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ticketRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.WaitingTicket, error) {
	var ticket domain.WaitingTicket
	err := r.db.WithContext(ctx).First(&ticket, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.WaitingTicket{}, "user_id = ?", userID).Error
}

func (r *ticketRepository) ListWaiting(ctx context.Context) ([]*domain.WaitingTicket, error) {
	var tickets []*domain.WaitingTicket
	err := r.db.WithContext(ctx).
		Order("joined_at ASC, seq ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
