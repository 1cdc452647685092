package models

import (
	"time"

	"github.com/google/uuid"
)

type Job struct {
	ID           uuid.UUID  `json:"id"`
	SessionID    uuid.UUID  `json:"session_id"` // zero when scheduled, set when a user forced the refresh
	Type         string     `json:"type"`       // "market-refresh"
	Status       string     `json:"status"`     // "queued" | "processing" | "completed" | "failed"
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type RefreshUpdate struct {
	JobID     uuid.UUID `json:"job_id"`
	Stage     string    `json:"stage"`
	Districts int       `json:"districts"`
}

type RefreshCompleted struct {
	JobID     uuid.UUID `json:"job_id"`
	Districts int       `json:"districts"`
	Listings  int       `json:"listings"`
}

type RefreshFailed struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
