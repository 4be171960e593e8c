package storage

import (
	"context"

	"ln-relay-lab/internal/domain"
)

// RunStore provides access to runs storage.
type RunStore interface {
	// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunSummary) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunSummary, error)

	// GetByConfigID retrieves all runs of a network config, ordered by started_at ASC.
	GetByConfigID(ctx context.Context, configID string) ([]*domain.RunSummary, error)

	// GetBySweepID retrieves all runs of a sweep, ordered by (config_id, repetition) ASC.
	GetBySweepID(ctx context.Context, sweepID string) ([]*domain.RunSummary, error)

	// List retrieves up to limit runs, most recently completed first.
	// A non-positive limit returns every run.
	List(ctx context.Context, limit int) ([]*domain.RunSummary, error)
}

// SeriesStore provides access to run_series storage.
type SeriesStore interface {
	// InsertBulk adds multiple points atomically. Fails entire batch on duplicate (run_id, index).
	InsertBulk(ctx context.Context, points []*domain.SeriesPoint) error

	// GetByRunID retrieves all points of a run, ordered by index ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.SeriesPoint, error)

	// GetByIndexRange retrieves points of a run within [from, to] (inclusive), ordered by index ASC.
	GetByIndexRange(ctx context.Context, runID string, from, to int) ([]*domain.SeriesPoint, error)
}

// SweepCellStore provides access to sweep_cells storage.
type SweepCellStore interface {
	// Insert adds a new cell. Returns ErrDuplicateKey if (sweep_id, config_id) exists.
	Insert(ctx context.Context, c *domain.SweepCell) error

	// Get retrieves one cell. Returns ErrNotFound if not exists.
	Get(ctx context.Context, sweepID, configID string) (*domain.SweepCell, error)

	// GetBySweepID retrieves all cells of a sweep, ordered by grid index ASC.
	GetBySweepID(ctx context.Context, sweepID string) ([]*domain.SweepCell, error)
}
