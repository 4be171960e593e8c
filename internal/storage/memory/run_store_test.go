package memory

import (
	"context"
	"errors"
	"testing"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/storage"
)

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunSummary{
		RunID:             "run1",
		ConfigID:          "cfg1",
		Config:            domain.PresetConfigFeeOnly,
		Seed:              7,
		TransactionsCount: 1000,
		Succeeded:         990,
		Failed:            10,
		FailureRatio:      0.01,
		FinalMeanBalance:  12.5,
	}

	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.FinalMeanBalance != 12.5 || got.Config.NumberOfRelays != domain.PresetConfigFeeOnly.NumberOfRelays {
		t.Errorf("stored run mismatch: %+v", got)
	}

	// Mutating the returned copy must not leak into the store
	got.Succeeded = 0
	again, _ := store.GetByID(ctx, "run1")
	if again.Succeeded != 990 {
		t.Errorf("store returned shared memory")
	}
}

func TestRunStore_DuplicateKey(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunSummary{RunID: "run1", ConfigID: "cfg1"}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, run)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRunStore_InvalidInput(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	for _, run := range []*domain.RunSummary{nil, {ConfigID: "cfg"}, {RunID: "run"}} {
		if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput for %+v, got %v", run, err)
		}
	}
}

func TestRunStore_NotFound(t *testing.T) {
	store := NewRunStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_Queries(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	runs := []*domain.RunSummary{
		{RunID: "r1", ConfigID: "a", SweepID: "s1", Repetition: 1, StartedAt: 300, CompletedAt: 400},
		{RunID: "r2", ConfigID: "a", SweepID: "s1", Repetition: 0, StartedAt: 100, CompletedAt: 200},
		{RunID: "r3", ConfigID: "b", SweepID: "s1", Repetition: 0, StartedAt: 200, CompletedAt: 900},
		{RunID: "r4", ConfigID: "b", StartedAt: 50, CompletedAt: 60},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.RunID, err)
		}
	}

	byConfig, _ := store.GetByConfigID(ctx, "a")
	if len(byConfig) != 2 || byConfig[0].RunID != "r2" || byConfig[1].RunID != "r1" {
		t.Errorf("GetByConfigID order wrong: %v", runIDs(byConfig))
	}

	bySweep, _ := store.GetBySweepID(ctx, "s1")
	if got := runIDs(bySweep); len(got) != 3 || got[0] != "r2" || got[1] != "r1" || got[2] != "r3" {
		t.Errorf("GetBySweepID order wrong: %v", got)
	}

	recent, _ := store.List(ctx, 2)
	if got := runIDs(recent); len(got) != 2 || got[0] != "r3" || got[1] != "r1" {
		t.Errorf("List order wrong: %v", got)
	}

	all, _ := store.List(ctx, 0)
	if len(all) != 4 {
		t.Errorf("Expected 4 runs, got %d", len(all))
	}
}

func runIDs(runs []*domain.RunSummary) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.RunID
	}
	return ids
}
