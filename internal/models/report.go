package models

import (
	"time"

	"github.com/google/uuid"
)

// Report kinds, also used as filename prefixes.
const (
	ReportKindProperty = "property_analysis"
	ReportKindDistrict = "district_summary"
	ReportKindMarket   = "market_analysis"
)

// Report is a generated artifact registered for download.
type Report struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Kind      string    `json:"kind"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"-"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// ReportInfo is one entry of the report listing endpoint.
type ReportInfo struct {
	Filename    string    `json:"filename"`
	Kind        string    `json:"kind"`
	Created     time.Time `json:"created"`
	SizeMB      float64   `json:"size_mb"`
	DownloadURL string    `json:"download_url"`
}
