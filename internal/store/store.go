// Package store tracks generation jobs per prompt key. It is the single
// piece of state mutated from concurrent request paths; all access is
// serialized through the store lock so a key can never hold two live jobs.
package store

import (
	"sync"
	"time"

	"github.com/worldloom/worldloom-backend/internal/types"
)

// Snapshot is a read-only view of a job's state.
type Snapshot struct {
	Key       string          `json:"prompt_key"`
	Status    types.JobStatus `json:"status"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type job struct {
	status    types.JobStatus
	progress  int
	message   string
	updatedAt time.Time
}

type JobStore struct {
	mu      sync.Mutex
	jobs    map[string]*job
	created int
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*job)}
}

// Begin creates a fresh queued job for key. It returns false when a
// non-terminal job already exists: the duplicate request is suppressed and
// no second job is created. A terminal prior job (completed or failed) does
// not block a new one.
func (s *JobStore) Begin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[key]; ok && !j.status.Terminal() {
		return false
	}
	s.jobs[key] = &job{
		status:    types.JobQueued,
		message:   "Initializing generation...",
		updatedAt: time.Now(),
	}
	s.created++
	return true
}

// Update advances a non-terminal job. Progress is monotonic: a lower value
// than the current one is ignored. Updates to terminal jobs are dropped.
func (s *JobStore) Update(key string, status types.JobStatus, progress int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[key]
	if !ok || j.status.Terminal() {
		return
	}
	if progress > j.progress {
		j.progress = progress
	}
	if status != "" {
		j.status = status
	}
	if message != "" {
		j.message = message
	}
	j.updatedAt = time.Now()
}

// Complete marks the job terminal at 100%.
func (s *JobStore) Complete(key, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[key]
	if !ok || j.status.Terminal() {
		return
	}
	j.status = types.JobCompleted
	j.progress = 100
	j.message = message
	j.updatedAt = time.Now()
}

// Fail marks the job terminal with an error message. A failed job does not
// poison the key: Begin accepts it again.
func (s *JobStore) Fail(key, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[key]
	if !ok || j.status.Terminal() {
		return
	}
	j.status = types.JobFailed
	j.message = message
	j.updatedAt = time.Now()
}

// Snapshot returns the current state of the job for key, if one was ever
// created. It never blocks on production work.
func (s *JobStore) Snapshot(key string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[key]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Key:       key,
		Status:    j.status,
		Progress:  j.progress,
		Message:   j.message,
		UpdatedAt: j.updatedAt,
	}, true
}

// CreatedCount reports how many jobs have ever been created.
func (s *JobStore) CreatedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}
