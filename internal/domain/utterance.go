package domain

import (
	"time"

	"github.com/google/uuid"
)

// Utterance is one finalized speech segment attributed to a single speaker.
// Records are append-only; together they form a room's transcript of record.
type Utterance struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoomID    uuid.UUID `json:"roomId" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null"`
	UserName  string    `json:"userName" gorm:"type:varchar(100);not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	StartMs   int64     `json:"startMs" gorm:"not null"`
	EndMs     int64     `json:"endMs" gorm:"not null"`
	Language  string    `json:"language" gorm:"type:varchar(16);not null;default:'en'"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Utterance) TableName() string {
	return "utterances"
}
