package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RoomMode string

const (
	RoomModePractice   RoomMode = "practice"
	RoomModeGlobal     RoomMode = "global"
	RoomModeTournament RoomMode = "tournament"
)

type RoomStatus string

const (
	RoomStatusLobby     RoomStatus = "lobby"
	RoomStatusActive    RoomStatus = "active"
	RoomStatusCompleted RoomStatus = "completed"
)

// Participant is one member of a discussion room, stored in join order.
type Participant struct {
	UserID   uuid.UUID `json:"userId"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

type DiscussionRoom struct {
	ID              uuid.UUID                         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Mode            RoomMode                          `json:"mode" gorm:"type:varchar(16);not null;default:'practice'"`
	Topic           string                            `json:"topic" gorm:"type:varchar(255);not null"`
	DurationSeconds int                               `json:"durationSeconds" gorm:"not null;default:600"`
	Status          RoomStatus                        `json:"status" gorm:"type:varchar(16);not null;default:'lobby'"`
	Participants    datatypes.JSONType[[]Participant] `json:"participants"`
	DepartedUsers   datatypes.JSONType[[]uuid.UUID]   `json:"departedUsers"`
	CreatedAt       time.Time                         `json:"createdAt"`
	StartedAt       *time.Time                        `json:"startedAt"`
	EndedAt         *time.Time                        `json:"endedAt"`
}

func (DiscussionRoom) TableName() string {
	return "discussion_rooms"
}

// HasParticipant reports whether userID is in the room's participant list.
func (r *DiscussionRoom) HasParticipant(userID uuid.UUID) bool {
	for _, p := range r.Participants.Data() {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// HasDeparted reports whether userID already left the room.
func (r *DiscussionRoom) HasDeparted(userID uuid.UUID) bool {
	for _, id := range r.DepartedUsers.Data() {
		if id == userID {
			return true
		}
	}
	return false
}

// MarkDeparted records userID as departed. It returns false when the user
// was already in the departed set.
func (r *DiscussionRoom) MarkDeparted(userID uuid.UUID) bool {
	if r.HasDeparted(userID) {
		return false
	}
	departed := append(r.DepartedUsers.Data(), userID)
	r.DepartedUsers = datatypes.NewJSONType(departed)
	return true
}

// AllDeparted reports whether every participant has left.
func (r *DiscussionRoom) AllDeparted() bool {
	participants := r.Participants.Data()
	if len(participants) == 0 {
		return false
	}
	for _, p := range participants {
		if !r.HasDeparted(p.UserID) {
			return false
		}
	}
	return true
}
