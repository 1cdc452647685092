package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Enkhtuvshin02/realstateagent/internal/analyzer"
	"github.com/Enkhtuvshin02/realstateagent/internal/config"
	"github.com/Enkhtuvshin02/realstateagent/internal/database"
	"github.com/Enkhtuvshin02/realstateagent/internal/handlers"
	"github.com/Enkhtuvshin02/realstateagent/internal/middleware"
	"github.com/Enkhtuvshin02/realstateagent/internal/render"
	"github.com/Enkhtuvshin02/realstateagent/internal/repository"
	"github.com/Enkhtuvshin02/realstateagent/internal/router"
	"github.com/Enkhtuvshin02/realstateagent/internal/scraper"
	"github.com/Enkhtuvshin02/realstateagent/internal/services"
	"github.com/Enkhtuvshin02/realstateagent/internal/websocket"
	"github.com/Enkhtuvshin02/realstateagent/internal/worker"
)

func main() {
	log.Println("🚀 Starting Real Estate Assistant...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	messageRepo := repository.NewMessageRepo(pool)
	reportRepo := repository.NewReportRepo(pool)

	// ──── Step 5: Initialize LLM Client ────
	llm, err := services.NewTextGenerator(cfg)
	if err != nil {
		log.Fatalf("✗ LLM client initialization failed: %v", err)
	}
	if closer, ok := llm.(interface{ Close() }); ok {
		defer closer.Close()
	}
	log.Printf("✓ LLM client initialized (%s)", cfg.LLMProvider)

	// ──── Initialize Services ────
	sessions := middleware.NewSessions(cfg.JWTSecret)
	listingScraper := scraper.New(cfg.ListingBaseURL)
	district := analyzer.NewDistrict(llm, redisClients.Cache)
	research := services.NewResearch(cfg.TavilyAPIKey, llm)
	engine := render.NewEngine(cfg.PDFConverterBin, cfg.ReportsDir)
	reports := services.NewReports(llm, district, research, engine, reportRepo)
	cot := services.NewCoT(llm)
	chat := services.NewChat(llm, district, listingScraper, research, reports, cot, messageRepo, redisClients.Cache)

	if !research.Enabled() {
		log.Println("TAVILY_API_KEY not set, web research disabled")
	}
	if !engine.Available() {
		log.Printf("%s not found, reports fall back to HTML", cfg.PDFConverterBin)
	}

	// ──── Step 6: Start Market Refresh Workers ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		listingScraper,
		district,
		cfg.ScrapePagesPerDistrict,
		cfg.RefreshWorkers,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.RefreshWorkers)

	// ──── Initialize Handlers ────
	sessionHandler := handlers.NewSessionHandler(sessions)
	chatHandler := handlers.NewChatHandler(chat)
	reportHandler := handlers.NewReportHandler(reports, cfg.ReportsDir)
	statusHandler := handlers.NewStatusHandler(
		pool,
		redisClients.Cache,
		llm,
		engine,
		research,
		cot,
		district,
		reports,
		workerPool,
	)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		sessions,
		sessionHandler,
		chatHandler,
		reportHandler,
		statusHandler,
		wsHub,
		cfg.FrontendURL,
	)

	// Write timeout covers a full chat turn, which may scrape listings
	// and render a report before answering.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Real Estate Assistant ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
