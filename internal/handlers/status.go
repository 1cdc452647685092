package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Enkhtuvshin02/realstateagent/internal/analyzer"
	"github.com/Enkhtuvshin02/realstateagent/internal/middleware"
	"github.com/Enkhtuvshin02/realstateagent/internal/models"
	"github.com/Enkhtuvshin02/realstateagent/internal/render"
	"github.com/Enkhtuvshin02/realstateagent/internal/services"
)

type StatusHandler struct {
	pool     *pgxpool.Pool
	cache    *redis.Client
	llm      analyzer.TextGenerator
	engine   *render.Engine
	research *services.Research
	cot      *services.CoT
	stats    statsCache
	reports  reportCounter
	queue    refreshQueue
}

type statsCache interface {
	CacheStatus(ctx context.Context) models.CacheStatus
}

type reportCounter interface {
	Count(ctx context.Context) (int, error)
}

type refreshQueue interface {
	Enqueue(ctx context.Context, sessionID uuid.UUID) (*models.Job, error)
}

func NewStatusHandler(
	pool *pgxpool.Pool,
	cache *redis.Client,
	llm analyzer.TextGenerator,
	engine *render.Engine,
	research *services.Research,
	cot *services.CoT,
	stats statsCache,
	reports reportCounter,
	queue refreshQueue,
) *StatusHandler {
	return &StatusHandler{
		pool:     pool,
		cache:    cache,
		llm:      llm,
		engine:   engine,
		research: research,
		cot:      cot,
		stats:    stats,
		reports:  reports,
		queue:    queue,
	}
}

// Health reports per-dependency readiness. Degraded still answers 200,
// monitoring reads the body.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]bool{
		"postgres":   h.pool != nil && h.pool.Ping(ctx) == nil,
		"redis":      h.cache != nil && h.cache.Ping(ctx).Err() == nil,
		"llm":        h.llm != nil,
		"research":   h.research != nil && h.research.Enabled(),
		"pdf_engine": h.engine != nil && h.engine.Available(),
	}

	allReady := true
	for _, ok := range checks {
		if !ok {
			allReady = false
			break
		}
	}

	status := "ok"
	if !allReady {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"services":  checks,
		"all_ready": allReady,
	})
}

// PDFStatus reports the active render engine and registry counters.
func (h *StatusHandler) PDFStatus(w http.ResponseWriter, r *http.Request) {
	count, err := h.reports.Count(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	engine := "html"
	if h.engine.Available() {
		engine = "wkhtmltopdf"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "success",
		"pdf_engine":    engine,
		"pdf_available": h.engine.Available(),
		"report_statistics": map[string]interface{}{
			"total_reports_generated": count,
			"reports_directory":       h.engine.ReportsDir(),
		},
	})
}

// CacheStatus reports how fresh the district statistics are.
func (h *StatusHandler) CacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.CacheStatus(r.Context()))
}

// CacheRefresh queues a market data refresh. Progress is pushed to the
// caller's websocket channel.
func (h *StatusHandler) CacheRefresh(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Enqueue(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "queued",
		"job_id": job.ID,
	})
}

// CoTStats returns the reasoning usage counters.
func (h *StatusHandler) CoTStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cot.Stats())
}
