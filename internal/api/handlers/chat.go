package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aeonisk/arbiter/internal/api"
	"github.com/aeonisk/arbiter/internal/service"
)

type ChatService interface {
	Chat(ctx context.Context, input service.ChatInput) (*service.ChatOutput, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	SessionID   string `json:"session_id,omitempty"`
	CharacterID string `json:"character_id,omitempty"`
	Message     string `json:"message"`
}

// Chat runs one assistant turn. Omitting session_id starts a new session
// and the response carries the ID to continue it.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	output, err := h.svc.Chat(r.Context(), service.ChatInput{
		SessionID:   req.SessionID,
		CharacterID: req.CharacterID,
		Message:     req.Message,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, output)
}
