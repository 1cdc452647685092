package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Enkhtuvshin02/realstateagent/internal/formatter"
	"github.com/Enkhtuvshin02/realstateagent/internal/middleware"
	"github.com/Enkhtuvshin02/realstateagent/internal/models"
)

type ChatHandler struct {
	chat chatService
}

type chatService interface {
	Respond(ctx context.Context, sessionID uuid.UUID, message string) (*models.ChatResult, error)
	History(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error)
}

func NewChatHandler(chat chatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Send runs one chat turn and returns the reply with its render blocks.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	sessionID := middleware.GetSessionID(r.Context())

	result, err := h.chat.Respond(r.Context(), sessionID, req.Message)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Response:    result.Response,
		Blocks:      formatter.Format(result.Response, result.Metadata()),
		DownloadURL: result.DownloadURL,
		Filename:    result.Filename,
		CotEnhanced: result.CotEnhanced,
		Timestamp:   time.Now(),
	})
}

// History returns the stored transcript of the caller's session.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	messages, err := h.chat.History(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if messages == nil {
		messages = []models.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
	})
}
