package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *roomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.DiscussionRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DiscussionRoom, error) {
	var room domain.DiscussionRoom
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) Update(ctx context.Context, room *domain.DiscussionRoom) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *roomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.DiscussionRoom{}, "id = ?", id).Error
}

func (r *roomRepository) Depart(ctx context.Context, roomID, userID uuid.UUID) (*domain.DiscussionRoom, bool, error) {
	var room domain.DiscussionRoom
	changed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, "id = ?", roomID).Error; err != nil {
			return err
		}

		if room.Status == domain.RoomStatusCompleted ||
			!room.HasParticipant(userID) ||
			!room.MarkDeparted(userID) {
			return nil
		}
		changed = true

		if room.AllDeparted() {
			now := time.Now()
			room.Status = domain.RoomStatusCompleted
			room.EndedAt = &now
		}
		return tx.Save(&room).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &room, changed, nil
}

func (r *roomRepository) ListActiveByParticipant(ctx context.Context, userID uuid.UUID) ([]*domain.DiscussionRoom, error) {
	containment := fmt.Sprintf(`[{"userId":%q}]`, userID.String())

	var rooms []*domain.DiscussionRoom
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.RoomStatusActive).
		Where("participants @> ?", containment).
		Order("created_at ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}
