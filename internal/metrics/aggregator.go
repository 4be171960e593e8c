package metrics

import (
	"context"
	"errors"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/storage"
)

var (
	// ErrNoRuns is returned when no runs are available for aggregation.
	ErrNoRuns = errors.New("no runs available for aggregation")
	// ErrNoSeries is returned when a run has no stored series.
	ErrNoSeries = errors.New("no series points stored for run")
)

// Aggregator computes run and config statistics from stored runs.
type Aggregator struct {
	runStore    storage.RunStore
	seriesStore storage.SeriesStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(runStore storage.RunStore, seriesStore storage.SeriesStore) *Aggregator {
	return &Aggregator{
		runStore:    runStore,
		seriesStore: seriesStore,
	}
}

// RunStats loads the series of a run and summarizes it.
// Returns storage.ErrNotFound for an unknown run and ErrNoSeries when the
// run exists but no points were stored.
func (a *Aggregator) RunStats(ctx context.Context, runID string) (*domain.RunStats, error) {
	if _, err := a.runStore.GetByID(ctx, runID); err != nil {
		return nil, err
	}

	points, err := a.seriesStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrNoSeries
	}

	return computeRunStats(runID, points), nil
}

// ConfigAggregate summarizes every stored run of a config.
// Returns ErrNoRuns if none exist.
func (a *Aggregator) ConfigAggregate(ctx context.Context, configID string) (*domain.ConfigAggregate, error) {
	runs, err := a.runStore.GetByConfigID(ctx, configID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}

	return computeConfigAggregate(configID, runs), nil
}
