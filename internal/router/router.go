package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Enkhtuvshin02/realstateagent/internal/handlers"
	"github.com/Enkhtuvshin02/realstateagent/internal/middleware"
	"github.com/Enkhtuvshin02/realstateagent/internal/websocket"
)

func New(
	sessions *middleware.Sessions,
	sessionHandler *handlers.SessionHandler,
	chatHandler *handlers.ChatHandler,
	reportHandler *handlers.ReportHandler,
	statusHandler *handlers.StatusHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Session issue limiter (10 req/min per IP), chat limiter (20 req/min per session)
	sessionLimiter := middleware.NewRateLimiter(10, time.Minute)
	chatLimiter := middleware.NewRateLimiter(20, time.Minute)

	// ──── Monitoring (public) ────
	r.Get("/health", statusHandler.Health)
	r.Get("/pdf/status", statusHandler.PDFStatus)
	r.Get("/cache/status", statusHandler.CacheStatus)
	r.Get("/cot/stats", statusHandler.CoTStats)

	// ──── Report Artifacts (public) ────
	r.Route("/reports", func(r chi.Router) {
		r.Get("/list", reportHandler.List)
		r.Get("/download/{filename}", reportHandler.Download)
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Session Routes (public) ────
		r.Group(func(r chi.Router) {
			r.Use(sessionLimiter.Middleware)
			r.Post("/session", sessionHandler.Create)
		})

		// ──── Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(sessions.Middleware)
			r.Use(chatLimiter.Middleware)
			r.Post("/", chatHandler.Send)
			r.Get("/history", chatHandler.History)
		})

		// ──── Cache Refresh ────
		r.Group(func(r chi.Router) {
			r.Use(sessions.Middleware)
			r.Post("/cache/refresh", statusHandler.CacheRefresh)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
