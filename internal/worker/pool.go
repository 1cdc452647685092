package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Enkhtuvshin02/realstateagent/internal/analyzer"
	"github.com/Enkhtuvshin02/realstateagent/internal/models"
	"github.com/Enkhtuvshin02/realstateagent/internal/scraper"
)

const (
	refreshQueue        = "queue:market-refresh"
	refreshScheduledKey = "refresh_scheduled"
	refreshMaxRetries   = 3
	scheduleInterval    = 1 * time.Hour
)

type Pool struct {
	redis       *redis.Client
	scraper     *scraper.Scraper
	district    *analyzer.District
	pages       int
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, sc *scraper.Scraper, district *analyzer.District, pages, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		scraper:     sc,
		district:    district,
		pages:       pages,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	go p.scheduler()

	log.Printf("Started %d market refresh workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

// Enqueue queues a market refresh job. A zero session ID marks a
// scheduled refresh with nobody listening for progress updates.
func (p *Pool) Enqueue(ctx context.Context, sessionID uuid.UUID) (*models.Job, error) {
	job := &models.Job{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Type:       "market-refresh",
		Status:     "queued",
		MaxRetries: refreshMaxRetries,
		CreatedAt:  time.Now(),
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh job: %w", err)
	}

	if err := p.redis.LPush(ctx, refreshQueue, string(jobBytes)).Err(); err != nil {
		return nil, fmt.Errorf("failed to enqueue refresh job: %w", err)
	}

	return job, nil
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, refreshQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		// Parse job
		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		districts, listings, processErr := p.refresh(ctx, &job)
		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job, districts, listings)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// refresh scrapes every district listing page, aggregates prices and
// replaces the cached statistics. Districts that fail to scrape are
// skipped, the refresh fails only when nothing at all was collected.
func (p *Pool) refresh(ctx context.Context, job *models.Job) (int, int, error) {
	p.publishUpdate(ctx, job, models.WSMessage{
		Type:    "status_update",
		Payload: models.RefreshUpdate{JobID: job.ID, Stage: "scraping", Districts: 0},
	})

	var listings []models.Listing
	scraped := 0
	for name := range scraper.DistrictPaths {
		rows, err := p.scraper.DistrictListings(ctx, name, p.pages)
		if err != nil {
			log.Printf("District %s scrape failed: %v", name, err)
			continue
		}

		listings = append(listings, rows...)
		scraped++

		p.publishUpdate(ctx, job, models.WSMessage{
			Type:    "status_update",
			Payload: models.RefreshUpdate{JobID: job.ID, Stage: "scraping", Districts: scraped},
		})
	}

	if len(listings) == 0 {
		return 0, 0, fmt.Errorf("no listings collected from any district")
	}

	p.publishUpdate(ctx, job, models.WSMessage{
		Type:    "status_update",
		Payload: models.RefreshUpdate{JobID: job.ID, Stage: "aggregating", Districts: scraped},
	})

	stats := analyzer.Aggregate(listings, time.Now())
	if err := p.district.StoreStats(ctx, stats); err != nil {
		return 0, 0, err
	}

	log.Printf("Market refresh %s: %d listings across %d districts", job.ID, len(listings), len(stats))
	return len(stats), len(listings), nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, districts, listings int) {
	p.publishUpdate(ctx, job, models.WSMessage{
		Type:    "completed",
		Payload: models.RefreshCompleted{JobID: job.ID, Districts: districts, Listings: listings},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < job.MaxRetries {
		// Re-queue with backoff
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		job.Status = "queued"
		job.ErrorMessage = &errMsg

		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), refreshQueue, string(jobBytes))
		})
	} else {
		// Max retries reached
		log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
		p.publishUpdate(ctx, job, models.WSMessage{
			Type:    "error",
			Payload: models.RefreshFailed{JobID: job.ID, ErrorMessage: errMsg},
		})
	}
}

// publishUpdate sends a WebSocket update via Redis pub/sub. Scheduled
// jobs carry no session and publish nothing.
func (p *Pool) publishUpdate(ctx context.Context, job *models.Job, msg models.WSMessage) {
	if job.SessionID == uuid.Nil {
		return
	}

	data, _ := json.Marshal(msg)
	p.redis.Publish(ctx, fmt.Sprintf("session_updates:%s", job.SessionID.String()), string(data))
}

// scheduler keeps the district statistics from going stale. It checks
// hourly and queues a refresh when the cache is older than a week.
func (p *Pool) scheduler() {
	// Run on startup as well as by interval.
	p.ensureFresh(context.Background())

	ticker := time.NewTicker(scheduleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.ensureFresh(context.Background())
		}
	}
}

func (p *Pool) ensureFresh(ctx context.Context) {
	status := p.district.CacheStatus(ctx)
	if status.IsFresh {
		return
	}

	// At most one scheduled enqueue per interval, across restarts too
	ok, err := p.redis.SetNX(ctx, refreshScheduledKey, "1", scheduleInterval).Result()
	if err != nil || !ok {
		return
	}

	job, err := p.Enqueue(ctx, uuid.Nil)
	if err != nil {
		log.Printf("Scheduled refresh enqueue failed: %v", err)
		return
	}

	log.Printf("District stats are stale, queued refresh job %s", job.ID)
}
