package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Enkhtuvshin02/realstateagent/internal/formatter"
)

// ChatMessage is one stored turn of a session transcript.
type ChatMessage struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Role      string          `json:"role"` // "user" or "assistant"
	Content   string          `json:"content"`
	MetaJSON  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResult is what the chat service produces for a single turn, before
// the reply text is formatted into blocks.
type ChatResult struct {
	Response    string
	DownloadURL string
	Filename    string
	CotEnhanced bool
}

// Metadata returns the formatter view of the result's optional fields.
func (r *ChatResult) Metadata() formatter.Metadata {
	return formatter.Metadata{
		DownloadURL: r.DownloadURL,
		Filename:    r.Filename,
		CotEnhanced: r.CotEnhanced,
	}
}

// ChatResponse is the reply delivered to the widget.
type ChatResponse struct {
	Response    string            `json:"response"`
	Blocks      []formatter.Block `json:"blocks"`
	DownloadURL string            `json:"download_url,omitempty"`
	Filename    string            `json:"filename,omitempty"`
	CotEnhanced bool              `json:"cot_enhanced,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}
