package queue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback when Redis is not configured.
// Jobs do not survive a restart.
type MemoryStore struct {
	mu   sync.Mutex
	jobs []Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Enqueue(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	sort.Slice(s.jobs, func(i, j int) bool {
		return s.jobs[i].NotBefore.Before(s.jobs[j].NotBefore)
	})
	return nil
}

func (s *MemoryStore) DequeueDue(_ context.Context, now time.Time, limit int) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job
	remaining := s.jobs[:0]
	for _, job := range s.jobs {
		if len(due) < limit && !job.NotBefore.After(now) {
			due = append(due, job)
			continue
		}
		remaining = append(remaining, job)
	}
	s.jobs = remaining
	return due, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs), nil
}
