// Package queue delivers notifications off the request path. Jobs live in
// memory and are retried with exponential backoff until they succeed or
// run out of attempts.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a job in the queue
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the job will not run again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one notification delivery.
type Job struct {
	ID           uuid.UUID
	Event        string
	InspectionID uuid.UUID
	Status       JobStatus
	MaxAttempts  int
	AttemptCount int
	ScheduledAt  time.Time
	CreatedAt    time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	WorkerID     string

	// Send performs the delivery.
	Send func(ctx context.Context) error
}

// Stats counts jobs by status.
type Stats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Queue is an in-memory job queue. Finished jobs are kept until Prune
// removes them.
type Queue struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job

	maxAttempts  int
	retryBackoff time.Duration
	now          func() time.Time
}

// NewQueue creates an empty queue.
func NewQueue(cfg Config) *Queue {
	q := &Queue{
		jobs:         make(map[uuid.UUID]*Job),
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		now:          cfg.Now,
	}
	if q.maxAttempts < 1 {
		q.maxAttempts = 1
	}
	if q.now == nil {
		q.now = time.Now
	}
	return q
}

// Enqueue adds a job that is due immediately.
func (q *Queue) Enqueue(event string, inspectionID uuid.UUID, send func(ctx context.Context) error) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	job := &Job{
		ID:           uuid.New(),
		Event:        event,
		InspectionID: inspectionID,
		Status:       JobStatusPending,
		MaxAttempts:  q.maxAttempts,
		ScheduledAt:  now,
		CreatedAt:    now,
		Send:         send,
	}
	q.jobs[job.ID] = job
	return job
}

// Dequeue locks the oldest due pending job for workerID.
// Returns nil if no job is due.
func (q *Queue) Dequeue(workerID string) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var next *Job
	for _, job := range q.jobs {
		if job.Status != JobStatusPending || job.ScheduledAt.After(now) {
			continue
		}
		if next == nil || job.ScheduledAt.Before(next.ScheduledAt) {
			next = job
		}
	}
	if next == nil {
		return nil
	}

	next.Status = JobStatusProcessing
	next.AttemptCount++
	next.WorkerID = workerID
	return next
}

// Complete marks a job as delivered.
func (q *Queue) Complete(jobID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	now := q.now()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.ErrorMessage = ""
	return nil
}

// Fail records a failed attempt. The job is rescheduled with exponential
// backoff until it reaches MaxAttempts, then marked failed.
// It reports whether the job will be retried.
func (q *Queue) Fail(jobID uuid.UUID, errMsg string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return false, fmt.Errorf("job not found: %s", jobID)
	}
	job.ErrorMessage = errMsg

	if job.AttemptCount >= job.MaxAttempts {
		now := q.now()
		job.Status = JobStatusFailed
		job.CompletedAt = &now
		return false, nil
	}

	job.Status = JobStatusPending
	job.ScheduledAt = q.now().Add(q.backoff(job.AttemptCount))
	return true, nil
}

// backoff doubles the base delay for every attempt already made.
func (q *Queue) backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return q.retryBackoff * time.Duration(1<<uint(attempts-1))
}

// Job returns a copy of the job with the given ID.
func (q *Queue) Job(jobID uuid.UUID) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Stats counts the jobs in each status.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Stats
	for _, job := range q.jobs {
		switch job.Status {
		case JobStatusPending:
			s.Pending++
		case JobStatusProcessing:
			s.Processing++
		case JobStatusCompleted:
			s.Completed++
		case JobStatusFailed:
			s.Failed++
		}
	}
	return s
}

// Prune removes finished jobs completed before cutoff and returns how
// many were removed.
func (q *Queue) Prune(cutoff time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for id, job := range q.jobs {
		if job.Status.IsTerminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(q.jobs, id)
			n++
		}
	}
	return n
}
