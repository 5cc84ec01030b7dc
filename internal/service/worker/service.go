package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shopple/internal/domain"
)

// Config controls the refresh loop
type Config struct {
	Interval time.Duration
	Batch    int
	// EnqueueAll schedules every commissionable product when the queue is empty
	EnqueueAll bool
}

// WorkerService drains refresh_product jobs on a fixed interval
type WorkerService struct {
	cfg       Config
	logger    *slog.Logger
	queue     domain.QueueRepository
	products  domain.ProductRepository
	refresher *Refresher

	mu    sync.Mutex
	stats WorkerStats
}

// WorkerStats tracks worker performance metrics
type WorkerStats struct {
	Cycles         int64
	JobsProcessed  int64
	JobsSucceeded  int64
	JobsFailed     int64
	LastCycleTime  time.Time
	LastCycleTaken time.Duration
}

// New creates a new worker service
func New(cfg Config, logger *slog.Logger, queue domain.QueueRepository, products domain.ProductRepository, refresher *Refresher) *WorkerService {
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &WorkerService{
		cfg:       cfg,
		logger:    logger,
		queue:     queue,
		products:  products,
		refresher: refresher,
	}
}

// Run processes one cycle immediately and then one per interval until ctx is done
func (w *WorkerService) Run(ctx context.Context) error {
	w.logger.Info("Starting worker service...",
		"interval", w.cfg.Interval,
		"batch", w.cfg.Batch,
		"enqueue_all", w.cfg.EnqueueAll,
	)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.logger.Error("Refresh cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Worker service stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce moves due retries back onto the queue, tops the queue up when
// asked to, and processes up to one batch of jobs
func (w *WorkerService) RunOnce(ctx context.Context) error {
	start := time.Now()
	jobType := domain.JobTypeRefreshProduct

	if err := w.queue.ProcessRetryJobs(ctx, jobType); err != nil {
		w.logger.Warn("Failed to process retry jobs", "error", err)
	}

	pending, err := w.queue.GetPendingCount(ctx, jobType)
	if err != nil {
		return fmt.Errorf("failed to get pending job count: %w", err)
	}

	if pending == 0 && w.cfg.EnqueueAll {
		pending, err = w.enqueueAll(ctx)
		if err != nil {
			return err
		}
	}
	if pending == 0 {
		w.logger.Debug("No refresh jobs pending")
		return nil
	}

	jobs := w.dequeue(ctx, min(pending, w.cfg.Batch))
	if len(jobs) == 0 {
		return nil
	}

	targets := make([]Target, 0, len(jobs))
	for _, job := range jobs {
		t, err := TargetFromJob(job)
		if err != nil {
			w.logger.Error("Dropping malformed refresh job", "job_id", job.ID, "error", err)
			w.fail(ctx, job.ID, err)
			continue
		}
		targets = append(targets, t)
	}

	outcomes := w.refresher.Refresh(ctx, targets)

	var succeeded, failed int64
	for _, t := range targets {
		outcome, ok := outcomes[t.JobID]
		if !ok {
			outcome = Outcome{Result: ResultFailed, Err: fmt.Errorf("no response for %s", t.URL)}
		}
		if outcome.Err != nil {
			w.fail(ctx, t.JobID, outcome.Err)
			failed++
			continue
		}
		if err := w.queue.Complete(ctx, t.JobID); err != nil {
			w.logger.Error("Failed to mark job as completed", "job_id", t.JobID, "error", err)
		}
		succeeded++
	}
	failed += int64(len(jobs) - len(targets))

	taken := time.Since(start)
	w.mu.Lock()
	w.stats.Cycles++
	w.stats.JobsProcessed += int64(len(jobs))
	w.stats.JobsSucceeded += succeeded
	w.stats.JobsFailed += failed
	w.stats.LastCycleTime = start
	w.stats.LastCycleTaken = taken
	w.mu.Unlock()

	w.logger.Info("Refresh cycle completed",
		"jobs", len(jobs),
		"succeeded", succeeded,
		"failed", failed,
		"duration", taken,
	)
	return nil
}

// enqueueAll schedules a batch of commissionable products, least recently
// refreshed first
func (w *WorkerService) enqueueAll(ctx context.Context) (int, error) {
	products, err := w.products.ListForRefresh(ctx, w.cfg.Batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list products for refresh: %w", err)
	}

	queued := 0
	for _, p := range products {
		if p.SourceURL == nil || *p.SourceURL == "" {
			continue
		}
		payload := domain.RefreshPayload{ProductID: p.ID.String(), URL: *p.SourceURL}
		if err := w.queue.Enqueue(ctx, domain.JobTypeRefreshProduct, payload); err != nil {
			w.logger.Error("Failed to enqueue refresh", "product_id", p.ID, "error", err)
			continue
		}
		queued++
	}

	if queued > 0 {
		w.logger.Info("Scheduled catalog refresh", "products", queued)
	}
	return queued, nil
}

func (w *WorkerService) dequeue(ctx context.Context, limit int) []*domain.QueueJob {
	jobs := make([]*domain.QueueJob, 0, limit)
	for i := 0; i < limit; i++ {
		job, err := w.queue.Dequeue(ctx, domain.JobTypeRefreshProduct)
		if err != nil {
			w.logger.Error("Failed to dequeue job", "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if job == nil {
			break
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func (w *WorkerService) fail(ctx context.Context, jobID string, cause error) {
	if err := w.queue.Fail(ctx, jobID, cause.Error()); err != nil {
		w.logger.Error("Failed to mark job as failed", "job_id", jobID, "error", err)
	}
}

// GetStats returns a copy of the current worker statistics
func (w *WorkerService) GetStats() WorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
