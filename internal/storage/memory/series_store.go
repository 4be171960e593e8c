package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SeriesPoint // keyed by (run_id, index)
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{
		data: make(map[string]*domain.SeriesPoint),
	}
}

func seriesKey(runID string, index int) string {
	return fmt.Sprintf("%s|%d", runID, index)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *SeriesStore) InsertBulk(_ context.Context, points []*domain.SeriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.RunID == "" || p.Index < 0 {
			return storage.ErrInvalidInput
		}
		key := seriesKey(p.RunID, p.Index)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		pointCopy := *p
		s.data[seriesKey(p.RunID, p.Index)] = &pointCopy
	}

	return nil
}

// GetByRunID retrieves all points of a run, ordered by index ASC.
func (s *SeriesStore) GetByRunID(ctx context.Context, runID string) ([]*domain.SeriesPoint, error) {
	return s.GetByIndexRange(ctx, runID, 0, math.MaxInt)
}

// GetByIndexRange retrieves points of a run within [from, to] (inclusive).
func (s *SeriesStore) GetByIndexRange(_ context.Context, runID string, from, to int) ([]*domain.SeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SeriesPoint
	for _, p := range s.data {
		if p.RunID == runID && p.Index >= from && p.Index <= to {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})

	return result, nil
}

var _ storage.SeriesStore = (*SeriesStore)(nil)
