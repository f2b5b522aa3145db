package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"gorm.io/datatypes"
)

// NewParticipant builds a participant with a fresh user id.
func NewParticipant(name string) domain.Participant {
	return domain.Participant{
		UserID:   uuid.New(),
		Name:     name,
		JoinedAt: time.Now(),
	}
}

// NewWaitingTicket builds a queue ticket joined at the given time.
func NewWaitingTicket(userID uuid.UUID, name string, joinedAt time.Time) *domain.WaitingTicket {
	return &domain.WaitingTicket{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		JoinedAt: joinedAt,
	}
}

// NewActiveRoom builds an active global room with the given participants.
func NewActiveRoom(topic string, participants ...domain.Participant) *domain.DiscussionRoom {
	now := time.Now()
	return &domain.DiscussionRoom{
		ID:              uuid.New(),
		Mode:            domain.RoomModeGlobal,
		Topic:           topic,
		DurationSeconds: 120,
		Status:          domain.RoomStatusActive,
		Participants:    datatypes.NewJSONType(participants),
		DepartedUsers:   datatypes.NewJSONType([]uuid.UUID{}),
		StartedAt:       &now,
	}
}

// NewUtterance builds one transcript row.
func NewUtterance(roomID uuid.UUID, p domain.Participant, text string, startMs, endMs int64) *domain.Utterance {
	return &domain.Utterance{
		ID:       uuid.New(),
		RoomID:   roomID,
		UserID:   p.UserID,
		UserName: p.Name,
		Text:     text,
		StartMs:  startMs,
		EndMs:    endMs,
		Language: "en",
	}
}
