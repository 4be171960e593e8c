package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/storage"
)

// SweepCellStore is an in-memory implementation of storage.SweepCellStore.
type SweepCellStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SweepCell // keyed by (sweep_id, config_id)
}

// NewSweepCellStore creates a new in-memory sweep cell store.
func NewSweepCellStore() *SweepCellStore {
	return &SweepCellStore{
		data: make(map[string]*domain.SweepCell),
	}
}

func cellKey(sweepID, configID string) string {
	return fmt.Sprintf("%s|%s", sweepID, configID)
}

// cloneCell copies the series slices so stored cells never alias caller memory.
func cloneCell(c *domain.SweepCell) *domain.SweepCell {
	cellCopy := *c
	cellCopy.MeanBalance = slices.Clone(c.MeanBalance)
	cellCopy.FailureRatio = slices.Clone(c.FailureRatio)
	return &cellCopy
}

// Insert adds a new cell. Returns ErrDuplicateKey if (sweep_id, config_id) exists.
func (s *SweepCellStore) Insert(_ context.Context, c *domain.SweepCell) error {
	if c == nil || c.SweepID == "" || c.ConfigID == "" {
		return storage.ErrInvalidInput
	}

	key := cellKey(c.SweepID, c.ConfigID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = cloneCell(c)
	return nil
}

// Get retrieves one cell. Returns ErrNotFound if not exists.
func (s *SweepCellStore) Get(_ context.Context, sweepID, configID string) (*domain.SweepCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[cellKey(sweepID, configID)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneCell(c), nil
}

// GetBySweepID retrieves all cells of a sweep, ordered by grid index ASC.
func (s *SweepCellStore) GetBySweepID(_ context.Context, sweepID string) ([]*domain.SweepCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SweepCell
	for _, c := range s.data {
		if c.SweepID == sweepID {
			result = append(result, cloneCell(c))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})

	return result, nil
}

var _ storage.SweepCellStore = (*SweepCellStore)(nil)
