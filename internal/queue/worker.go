package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/safecheck/internal/metrics"
)

// Config configures the queue and its worker pool.
type Config struct {
	WorkerCount      int
	PollInterval     time.Duration
	JobTimeout       time.Duration
	MaxAttempts      int
	RetryBackoff     time.Duration
	ShutdownTimeout  time.Duration
	CleanupInterval  time.Duration
	CleanupRetention time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		WorkerCount:      2,
		PollInterval:     500 * time.Millisecond,
		JobTimeout:       30 * time.Second,
		MaxAttempts:      3,
		RetryBackoff:     30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		CleanupInterval:  10 * time.Minute,
		CleanupRetention: time.Hour,
	}
}

// WorkerPool runs jobs from a Queue on a fixed number of goroutines.
type WorkerPool struct {
	queue   *Queue
	logger  *slog.Logger
	metrics *metrics.Metrics
	config  Config
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewWorkerPool creates a new worker pool. m may be nil.
func NewWorkerPool(queue *Queue, logger *slog.Logger, m *metrics.Metrics, config Config) *WorkerPool {
	return &WorkerPool{
		queue:   queue,
		logger:  logger,
		metrics: m,
		config:  config,
	}
}

// Queue returns the queue the pool drains.
func (wp *WorkerPool) Queue() *Queue {
	return wp.queue
}

// Start starts the workers and the background cleanup.
func (wp *WorkerPool) Start(ctx context.Context) error {
	wp.mu.Lock()
	if wp.cancel != nil {
		wp.mu.Unlock()
		return fmt.Errorf("worker pool already started")
	}
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	wp.cancel = cancel
	wp.mu.Unlock()

	for i := 0; i < wp.config.WorkerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(workerCtx, fmt.Sprintf("worker-%d", i+1))
	}
	if wp.config.CleanupInterval > 0 {
		wp.wg.Add(1)
		go wp.cleanup(workerCtx)
	}

	wp.logger.Info("notification workers started",
		slog.Int("worker_count", wp.config.WorkerCount),
		slog.Int("max_attempts", wp.config.MaxAttempts))
	return nil
}

// Stop stops the workers, then delivers the jobs that are already due.
// Jobs waiting for a retry are dropped and logged.
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	if wp.cancel == nil {
		wp.mu.Unlock()
		return fmt.Errorf("worker pool not started")
	}
	cancel := wp.cancel
	wp.cancel = nil
	wp.mu.Unlock()

	wp.logger.Info("stopping notification workers")
	cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(wp.config.ShutdownTimeout):
		wp.logger.Warn("notification workers shutdown timeout",
			slog.Duration("timeout", wp.config.ShutdownTimeout))
		return fmt.Errorf("shutdown timeout after %v", wp.config.ShutdownTimeout)
	}

	ctx, cancelDrain := context.WithTimeout(context.Background(), wp.config.ShutdownTimeout)
	defer cancelDrain()
	wp.Drain(ctx)

	if stats := wp.queue.Stats(); stats.Pending > 0 {
		wp.logger.Warn("dropping undelivered notifications", slog.Int("pending", stats.Pending))
	}
	return nil
}

// Drain runs due jobs on the calling goroutine until none are left or
// ctx is done.
func (wp *WorkerPool) Drain(ctx context.Context) {
	for ctx.Err() == nil {
		job := wp.queue.Dequeue("drain")
		if job == nil {
			return
		}
		wp.executeJob(ctx, job)
	}
}

// worker is the main worker loop
func (wp *WorkerPool) worker(ctx context.Context, workerID string) {
	defer wp.wg.Done()

	ticker := time.NewTicker(wp.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for ctx.Err() == nil {
				job := wp.queue.Dequeue(workerID)
				if job == nil {
					break
				}
				wp.executeJob(ctx, job)
			}
		}
	}
}

// executeJob runs the job and records the outcome on the queue. A send
// that has started is allowed to finish when the pool stops; only
// JobTimeout bounds it.
func (wp *WorkerPool) executeJob(ctx context.Context, job *Job) {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), wp.config.JobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Send(jobCtx)
	duration := time.Since(start)

	if err == nil {
		if err := wp.queue.Complete(job.ID); err != nil {
			wp.logger.Error("completing job", slog.String("error", err.Error()))
		}
		wp.record(job.Event, "sent")
		wp.logger.Debug("notification delivered",
			slog.String("job_id", job.ID.String()),
			slog.String("event", job.Event),
			slog.Duration("duration", duration))
		return
	}

	retry, ferr := wp.queue.Fail(job.ID, err.Error())
	if ferr != nil {
		wp.logger.Error("failing job", slog.String("error", ferr.Error()))
		return
	}

	attrs := []any{
		slog.String("job_id", job.ID.String()),
		slog.String("event", job.Event),
		slog.String("inspection_id", job.InspectionID.String()),
		slog.Int("attempt", job.AttemptCount),
		slog.String("error", err.Error()),
	}
	if retry {
		wp.record(job.Event, "retried")
		wp.logger.Warn("notification failed, will retry", attrs...)
		return
	}
	wp.record(job.Event, "failed")
	wp.logger.Error("notification failed", attrs...)
}

func (wp *WorkerPool) record(event, outcome string) {
	if wp.metrics != nil {
		wp.metrics.RecordNotification(event, outcome)
	}
}

// cleanup periodically prunes finished jobs.
func (wp *WorkerPool) cleanup(ctx context.Context) {
	defer wp.wg.Done()

	ticker := time.NewTicker(wp.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := wp.queue.Prune(wp.queue.now().Add(-wp.config.CleanupRetention)); n > 0 {
				wp.logger.Debug("pruned finished notification jobs", slog.Int("count", n))
			}
		}
	}
}
