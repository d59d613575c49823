package storage

import (
	"context"
	"sync"

	"crossmarket/internal/errors"
)

// MemoryStore is an in-memory storage backend
type MemoryStore struct {
	runs map[string]*StoredRun
	mu   sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*StoredRun),
	}
}

func (s *MemoryStore) Save(ctx context.Context, run *StoredRun) error {
	if run.ID == "" {
		return errors.Input("run ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *run
	stored.Rows = append(stored.Rows[:0:0], run.Rows...)
	s.runs[run.ID] = &stored
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	out := *run
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := []*StoredRun{}
	for _, run := range s.runs {
		if filter.matches(run) {
			runs = append(runs, run.header())
		}
	}
	return filter.page(runs), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return errors.NotFound(id)
	}
	delete(s.runs, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
