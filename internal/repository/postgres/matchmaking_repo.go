package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type matchmakingRepository struct {
	db *gorm.DB
}

func NewMatchmakingRepository(db *gorm.DB) *matchmakingRepository {
	return &matchmakingRepository{db: db}
}

// FormGroup runs the dequeue-and-create step as one transaction. The oldest
// tickets are locked FOR UPDATE so concurrent callers on other instances
// block until this commit and then see the tickets gone; overlapping groups
// cannot form.
func (r *matchmakingRepository) FormGroup(ctx context.Context, groupSize int, topic string, durationSeconds int) (*domain.DiscussionRoom, error) {
	var room *domain.DiscussionRoom

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tickets []*domain.WaitingTicket
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("joined_at ASC, seq ASC").
			Limit(groupSize).
			Find(&tickets).Error; err != nil {
			return err
		}

		if len(tickets) < groupSize {
			return nil
		}

		now := time.Now()
		participants := make([]domain.Participant, len(tickets))
		ticketIDs := make([]uuid.UUID, len(tickets))
		for i, t := range tickets {
			participants[i] = domain.Participant{
				UserID:   t.UserID,
				Name:     t.Name,
				JoinedAt: now,
			}
			ticketIDs[i] = t.ID
		}

		created := &domain.DiscussionRoom{
			ID:              uuid.New(),
			Mode:            domain.RoomModeGlobal,
			Topic:           topic,
			DurationSeconds: durationSeconds,
			Status:          domain.RoomStatusActive,
			Participants:    datatypes.NewJSONType(participants),
			DepartedUsers:   datatypes.NewJSONType([]uuid.UUID{}),
			StartedAt:       &now,
		}
		if err := tx.Create(created).Error; err != nil {
			return err
		}

		if err := tx.Delete(&domain.WaitingTicket{}, "id IN ?", ticketIDs).Error; err != nil {
			return err
		}

		room = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}
