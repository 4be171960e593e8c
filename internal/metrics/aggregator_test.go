package metrics

import (
	"context"
	"errors"
	"testing"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/storage"
	"ln-relay-lab/internal/storage/memory"
)

func setupStores(t *testing.T) (*memory.RunStore, *memory.SeriesStore) {
	t.Helper()
	ctx := context.Background()
	runs := memory.NewRunStore()
	series := memory.NewSeriesStore()

	for _, r := range []*domain.RunSummary{
		{RunID: "r1", ConfigID: "cfg", FinalMeanBalance: 1, FinalNetProfitMean: 1, FailureRatio: 0.1, StartedAt: 1},
		{RunID: "r2", ConfigID: "cfg", FinalMeanBalance: 3, FinalNetProfitMean: 3, FailureRatio: 0.3, StartedAt: 2},
		{RunID: "empty", ConfigID: "other"},
	} {
		if err := runs.Insert(ctx, r); err != nil {
			t.Fatalf("Insert run failed: %v", err)
		}
	}

	points := []*domain.SeriesPoint{
		{RunID: "r1", Index: 0, MeanBalance: -1},
		{RunID: "r1", Index: 1, Value: 5, Succeeded: true, MeanBalance: 0},
		{RunID: "r1", Index: 2, Value: 7, Succeeded: true, MeanBalance: 1},
	}
	if err := series.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	return runs, series
}

func TestAggregator_RunStats(t *testing.T) {
	runs, series := setupStores(t)
	agg := NewAggregator(runs, series)

	stats, err := agg.RunStats(context.Background(), "r1")
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if stats.Points != 3 || stats.Succeeded != 2 || stats.MeanBalanceEnd != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestAggregator_RunStatsErrors(t *testing.T) {
	runs, series := setupStores(t)
	agg := NewAggregator(runs, series)
	ctx := context.Background()

	if _, err := agg.RunStats(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := agg.RunStats(ctx, "empty"); !errors.Is(err, ErrNoSeries) {
		t.Errorf("expected ErrNoSeries, got %v", err)
	}
}

func TestAggregator_ConfigAggregate(t *testing.T) {
	runs, series := setupStores(t)
	agg := NewAggregator(runs, series)
	ctx := context.Background()

	got, err := agg.ConfigAggregate(ctx, "cfg")
	if err != nil {
		t.Fatalf("ConfigAggregate failed: %v", err)
	}
	if got.Runs != 2 || got.FinalMeanBalanceMean != 2 || got.ProfitableRate != 1 {
		t.Errorf("unexpected aggregate: %+v", got)
	}

	if _, err := agg.ConfigAggregate(ctx, "none"); !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}
}
