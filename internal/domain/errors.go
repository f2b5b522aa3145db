package domain

import "errors"

// Room errors
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomNotInLobby = errors.New("room is not in lobby state")
	ErrRoomNotActive  = errors.New("room is not active")
	ErrRoomCompleted  = errors.New("room is already completed")
	ErrNotParticipant = errors.New("user is not a participant of this room")
)

// Matchmaking errors
var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrInvalidName   = errors.New("name is required")
	ErrNotWaiting    = errors.New("user has no waiting ticket")
)

// Scoring errors
var (
	ErrEmptyTranscript = errors.New("room has no utterances to score")
)
