package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Enkhtuvshin02/realstateagent/internal/middleware"
	"github.com/Enkhtuvshin02/realstateagent/internal/models"
	"github.com/Enkhtuvshin02/realstateagent/internal/services"
)

type SessionHandler struct {
	sessions *middleware.Sessions
}

func NewSessionHandler(sessions *middleware.Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create issues a fresh anonymous session token. The widget calls this
// once on load and sends the token on the chat and websocket routes.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	token, sessionID, err := h.sessions.Issue()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":      token,
		"session_id": sessionID,
	})
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
