package domain

import (
	"time"

	"github.com/google/uuid"
)

// WaitingTicket is a queued request to be matched into a global room.
// FIFO order is (JoinedAt, Seq); Seq breaks ties between tickets created
// within the same timestamp granularity.
type WaitingTicket struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID   uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex"`
	Name     string    `json:"name" gorm:"type:varchar(100);not null"`
	JoinedAt time.Time `json:"joinedAt" gorm:"not null;index"`
	Seq      int64     `json:"-" gorm:"autoIncrement;uniqueIndex"`
}

func (WaitingTicket) TableName() string {
	return "waiting_tickets"
}
