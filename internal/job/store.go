package job

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ryabkov82/bulk-import/internal/importer"
)

// ErrQueueFull is returned when the job queue is full
var ErrQueueFull = errors.New("queue is full")

// ErrNotFound is returned for unknown job ids
var ErrNotFound = errors.New("job not found")

// DefaultQueueSize is the capacity of the pending job queue
const DefaultQueueSize = 1000

// Store manages jobs in memory
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	queue chan *Job
	now   func() time.Time
}

// NewStore creates a new job store
func NewStore() *Store {
	return NewStoreWithCapacity(DefaultQueueSize)
}

// NewStoreWithCapacity creates a store whose queue holds at most capacity pending jobs
func NewStoreWithCapacity(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultQueueSize
	}
	return &Store{
		jobs:  make(map[string]*Job),
		queue: make(chan *Job, capacity),
		now:   time.Now,
	}
}

// Create creates a new job and returns its ID
// Returns ErrQueueFull if the queue is full (job is not created)
func (s *Store) Create(j *Job) (string, error) {
	j.ID = uuid.New().String()
	j.Status = StatusQueued
	j.CreatedAt = s.now()

	// Register before queueing so a fast worker always finds the job
	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()

	select {
	case s.queue <- j:
		return j.ID, nil
	default:
		s.mu.Lock()
		delete(s.jobs, j.ID)
		s.mu.Unlock()
		return "", ErrQueueFull
	}
}

// Get returns a snapshot of the job
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j.snapshot(), nil
}

// List returns snapshots of all jobs, newest first
func (s *Store) List() []*Job {
	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

// NextJob returns the next job from the queue (blocking)
func (s *Store) NextJob(ctx context.Context) (*Job, error) {
	select {
	case j := <-s.queue:
		return j, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// update applies fn to the job under the write lock; unknown ids are ignored
func (s *Store) update(id string, fn func(j *Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[id]; ok {
		fn(j)
	}
}

// UpdateStatus updates job status and related fields
func (s *Store) UpdateStatus(id string, status JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	j.Status = status
	now := s.now()

	if status != StatusQueued && j.StartedAt == nil {
		j.StartedAt = &now
	}
	if status.Finished() && j.FinishedAt == nil {
		j.FinishedAt = &now
	}

	return nil
}

// UpdateProgress records how many of total records have been batched
func (s *Store) UpdateProgress(id string, total, processed int) {
	s.update(id, func(j *Job) {
		j.TotalRecords = total
		j.RecordsBatched = processed
	})
}

// UpdateError updates job error message
func (s *Store) UpdateError(id string, err error) {
	s.update(id, func(j *Job) {
		if err != nil {
			j.LastError = err.Error()
		} else {
			j.LastError = ""
		}
	})
}

// Notify appends a notification to the job
func (s *Store) Notify(id string, sev Severity, message string) {
	s.update(id, func(j *Job) {
		j.Notifications = append(j.Notifications, Notification{
			Severity: sev,
			Message:  message,
			At:       s.now(),
		})
	})
}

// SetModalVisible records the dialog visibility of the job
func (s *Store) SetModalVisible(id string, visible bool) {
	s.update(id, func(j *Job) { j.ModalVisible = visible })
}

// MarkRefreshed records a table refresh
func (s *Store) MarkRefreshed(id string) {
	s.update(id, func(j *Job) {
		now := s.now()
		j.RefreshedAt = &now
	})
}

// Finish copies the final report into the job and releases its records
func (s *Store) Finish(id string, rep importer.Report) {
	s.update(id, func(j *Job) {
		j.TotalRecords = rep.TotalRecords
		j.BatchesTotal = rep.Batches
		j.BatchesSucceeded = rep.Succeeded
		j.BatchesFailed = rep.Failed
		j.Records = nil
		j.Attempts = rep.Timings.Attempts
		j.Retries = rep.Timings.Retries
		if rep.Err != nil {
			j.LastError = rep.Err.Error()
		}

		status := JobStatus(rep.Status)
		if status.Finished() {
			j.Status = status
			if j.FinishedAt == nil {
				now := s.now()
				j.FinishedAt = &now
			}
		}
	})
}

// Fail marks a job failed before it reached the importer (e.g. unreadable input)
func (s *Store) Fail(id string, err error) {
	s.UpdateError(id, err)
	_ = s.UpdateStatus(id, StatusFailed)
	s.Notify(id, SeverityError, importer.MsgFailedPrefix+err.Error())
}
