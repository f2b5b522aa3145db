package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/service"
)

type MatchmakingHandler struct {
	matchmaking *service.MatchmakingService
}

func NewMatchmakingHandler(matchmaking *service.MatchmakingService) *MatchmakingHandler {
	return &MatchmakingHandler{matchmaking: matchmaking}
}

type JoinQueueRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type LeaveQueueRequest struct {
	UserID string `json:"userId"`
}

func (h *MatchmakingHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, "userId must be a UUID", http.StatusBadRequest)
		return
	}

	status, err := h.matchmaking.Join(r.Context(), userID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *MatchmakingHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		http.Error(w, "userId must be a UUID", http.StatusBadRequest)
		return
	}

	status, err := h.matchmaking.Status(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *MatchmakingHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req LeaveQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, "userId must be a UUID", http.StatusBadRequest)
		return
	}

	if err := h.matchmaking.Leave(r.Context(), userID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
