package handlers

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Enkhtuvshin02/realstateagent/internal/models"
)

type ReportHandler struct {
	reports    reportRegistry
	reportsDir string
}

type reportRegistry interface {
	List(ctx context.Context) ([]models.ReportInfo, error)
}

func NewReportHandler(reports reportRegistry, reportsDir string) *ReportHandler {
	return &ReportHandler{reports: reports, reportsDir: reportsDir}
}

// Download serves a generated report artifact by filename.
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	// Only bare names of generated artifacts, nothing that could walk
	// out of the reports directory
	ext := filepath.Ext(filename)
	if filename == "" || filename != filepath.Base(filename) ||
		strings.Contains(filename, "..") || (ext != ".pdf" && ext != ".html") {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid filename", r))
		return
	}

	path := filepath.Join(h.reportsDir, filename)
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("Report file not found: %s", filename)
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Файл олдсонгүй", r))
		return
	}

	log.Printf("Downloading report: %s (%d bytes)", filename, info.Size())

	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

// List returns the report registry, newest first.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"total":   len(reports),
	})
}
