package memory

import (
	"context"
	"sort"
	"sync"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunSummary // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.RunSummary),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.RunSummary) error {
	if r == nil || r.RunID == "" || r.ConfigID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.data[r.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *r
	return &runCopy, nil
}

// GetByConfigID retrieves all runs of a config, ordered by started_at ASC.
func (s *RunStore) GetByConfigID(_ context.Context, configID string) ([]*domain.RunSummary, error) {
	result := s.filter(func(r *domain.RunSummary) bool { return r.ConfigID == configID })

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt < result[j].StartedAt
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// GetBySweepID retrieves all runs of a sweep, ordered by (config_id, repetition) ASC.
func (s *RunStore) GetBySweepID(_ context.Context, sweepID string) ([]*domain.RunSummary, error) {
	result := s.filter(func(r *domain.RunSummary) bool { return r.SweepID == sweepID })

	sort.Slice(result, func(i, j int) bool {
		if result[i].ConfigID != result[j].ConfigID {
			return result[i].ConfigID < result[j].ConfigID
		}
		return result[i].Repetition < result[j].Repetition
	})

	return result, nil
}

// List retrieves up to limit runs, most recently completed first.
func (s *RunStore) List(_ context.Context, limit int) ([]*domain.RunSummary, error) {
	result := s.filter(func(*domain.RunSummary) bool { return true })

	sort.Slice(result, func(i, j int) bool {
		if result[i].CompletedAt != result[j].CompletedAt {
			return result[i].CompletedAt > result[j].CompletedAt
		}
		return result[i].RunID < result[j].RunID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *RunStore) filter(keep func(*domain.RunSummary) bool) []*domain.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunSummary
	for _, r := range s.data {
		if keep(r) {
			runCopy := *r
			result = append(result, &runCopy)
		}
	}
	return result
}

var _ storage.RunStore = (*RunStore)(nil)
