package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/service"
)

type RoomHandler struct {
	rooms   *service.RoomService
	scoring *service.ScoringService
}

func NewRoomHandler(rooms *service.RoomService, scoring *service.ScoringService) *RoomHandler {
	return &RoomHandler{rooms: rooms, scoring: scoring}
}

type CreateRoomRequest struct {
	Mode            string                   `json:"mode"`
	Topic           string                   `json:"topic"`
	DurationSeconds int                      `json:"durationSeconds"`
	Participants    []RoomParticipantRequest `json:"participants"`
}

type RoomParticipantRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type LeaveRoomRequest struct {
	UserID string `json:"userId"`
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	now := time.Now()
	participants := make([]domain.Participant, len(req.Participants))
	for i, p := range req.Participants {
		userID, err := uuid.Parse(p.UserID)
		if err != nil {
			http.Error(w, "participant userId must be a UUID", http.StatusBadRequest)
			return
		}
		participants[i] = domain.Participant{UserID: userID, Name: p.Name, JoinedAt: now}
	}

	room, err := h.rooms.Create(r.Context(), service.CreateRoomRequest{
		Mode:            domain.RoomMode(req.Mode),
		Topic:           req.Topic,
		DurationSeconds: req.DurationSeconds,
		Participants:    participants,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(w, r)
	if !ok {
		return
	}
	room, err := h.rooms.Get(r.Context(), roomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(w, r)
	if !ok {
		return
	}
	room, err := h.rooms.Start(r.Context(), roomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(w, r)
	if !ok {
		return
	}
	var req LeaveRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, "userId must be a UUID", http.StatusBadRequest)
		return
	}

	room, err := h.rooms.Leave(r.Context(), roomID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(w, r)
	if !ok {
		return
	}
	if err := h.rooms.Delete(r.Context(), roomID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(w, r)
	if !ok {
		return
	}
	utterances, err := h.rooms.Transcript(r.Context(), roomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utterances)
}

func (h *RoomHandler) Scores(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(w, r)
	if !ok {
		return
	}
	scores, err := h.scoring.GetScores(r.Context(), roomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (h *RoomHandler) LiveMetrics(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(w, r)
	if !ok {
		return
	}
	snapshot, err := h.rooms.LiveMetrics(r.Context(), roomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func roomIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "room id must be a UUID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return roomID, true
}
