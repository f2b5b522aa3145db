package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ScoreReport is the persisted result of scoring a completed room's
// transcript. At most one report exists per room.
type ScoreReport struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoomID    uuid.UUID      `json:"roomId" gorm:"type:uuid;not null;uniqueIndex"`
	Topic     string         `json:"topic" gorm:"type:varchar(255);not null"`
	Scores    datatypes.JSON `json:"scores" gorm:"not null"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (ScoreReport) TableName() string {
	return "score_reports"
}
