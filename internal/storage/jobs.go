package storage

import (
	"sync"
	"time"

	"github.com/bobmcallan/contra/internal/interfaces"
	"github.com/bobmcallan/contra/internal/models"
)

// JobStore is the process-wide registry of analysis jobs. Reads return a
// copy of the job record so the polling path never observes a partially
// updated one; the Result pointer is shared and immutable once set.
// State is in-memory only and lost on restart.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.AnalysisJob
}

// NewJobStore creates an empty registry.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*models.AnalysisJob),
	}
}

// Create registers a new job.
func (s *JobStore) Create(job *models.AnalysisJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs[job.ID] = job
}

// Get returns a copy of the job.
func (s *JobStore) Get(id string) (*models.AnalysisJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	cp := *job
	return &cp, true
}

// Update applies fn to the job under the store lock. Returns false when the
// job does not exist.
func (s *JobStore) Update(id string, fn func(*models.AnalysisJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	job.UpdatedAt = time.Now()
	return true
}

// Cancel marks the job cancelled. A job already in a terminal state is left
// untouched. The worker observes cancellation at the next stage boundary.
func (s *JobStore) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	if job.Terminal() {
		return false
	}
	job.Status = models.JobStatusCancelled
	job.UpdatedAt = time.Now()
	return true
}

// IsCancelled reports whether the job has been cancelled.
func (s *JobStore) IsCancelled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return ok && job.Status == models.JobStatusCancelled
}

// Ensure JobStore implements the interface
var _ interfaces.JobStore = (*JobStore)(nil)
