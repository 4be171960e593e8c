package sweep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/experiment"
	"ln-relay-lab/internal/idhash"
	"ln-relay-lab/internal/sampling"
	"ln-relay-lab/internal/storage/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uniformValues(domain.SweepConfig) sampling.Config {
	return sampling.Config{Kind: sampling.KindUniform, Min: 1, Max: 30}
}

func smallSweep() domain.SweepConfig {
	return domain.SweepConfig{
		Base: domain.NetworkConfig{
			ChannelCost:             1,
			RelayTransactionFee:     0.5,
			HopsNumber:              2,
			NumberOfRelays:          6,
			NumberOfClients:         30,
			NumberOfRelaysPerClient: 2,
		},
		RelayRelayBalances:          []float64{20, 200},
		ClientRelayBalances:         []float64{50},
		TransactionProportionalFees: []float64{0.01, 0.05},
		TransactionsCount:           30,
		AvgAcrossCount:              2,
		CPURatio:                    0.5,
		Seed:                        11,
	}
}

func newSweeper(workers int, cells *memory.SweepCellStore, runs *memory.RunStore, series *memory.SeriesStore) *Sweeper {
	runnerOpts := experiment.RunnerOptions{Logger: quietLogger()}
	if runs != nil {
		runnerOpts.RunStore = runs
	}
	if series != nil {
		runnerOpts.SeriesStore = series
	}
	opts := Options{
		Runner:  experiment.NewRunner(runnerOpts),
		Values:  uniformValues,
		Workers: workers,
		Logger:  quietLogger(),
	}
	if cells != nil {
		opts.CellStore = cells
	}
	if series != nil {
		opts.SeriesStore = series
	}
	return New(opts)
}

func TestSweeper_Run_GridOrder(t *testing.T) {
	sc := smallSweep()
	result, err := newSweeper(2, nil, nil, nil).Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	configs := sc.Cells()
	if len(result.Cells) != len(configs) {
		t.Fatalf("expected %d cells, got %d", len(configs), len(result.Cells))
	}
	if result.Computed != 4 || result.Resumed != 0 {
		t.Errorf("computed %d resumed %d", result.Computed, result.Resumed)
	}
	for i, cell := range result.Cells {
		if cell.Index != i {
			t.Errorf("cell %d has index %d", i, cell.Index)
		}
		if cell.Config != configs[i] {
			t.Errorf("cell %d config mismatch", i)
		}
		if cell.ConfigID != idhash.ConfigID(configs[i]) {
			t.Errorf("cell %d config id mismatch", i)
		}
		if cell.SweepID != result.SweepID {
			t.Errorf("cell %d sweep id %q, want %q", i, cell.SweepID, result.SweepID)
		}
		if len(cell.MeanBalance) != sc.TransactionsCount+1 || len(cell.FailureRatio) != sc.TransactionsCount+1 {
			t.Errorf("cell %d series lengths %d/%d", i, len(cell.MeanBalance), len(cell.FailureRatio))
		}
		if cell.Repetitions != sc.AvgAcrossCount {
			t.Errorf("cell %d repetitions %d", i, cell.Repetitions)
		}
	}
}

func TestSweeper_Run_IndependentOfWorkerCount(t *testing.T) {
	sc := smallSweep()
	ctx := context.Background()

	serial, err := newSweeper(1, nil, nil, nil).Run(ctx, sc)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := newSweeper(4, nil, nil, nil).Run(ctx, sc)
	if err != nil {
		t.Fatal(err)
	}

	for i := range serial.Cells {
		a, b := serial.Cells[i], parallel.Cells[i]
		for j := range a.MeanBalance {
			if a.MeanBalance[j] != b.MeanBalance[j] || a.FailureRatio[j] != b.FailureRatio[j] {
				t.Fatalf("cell %d point %d differs between worker counts", i, j)
			}
		}
	}
}

func TestSweeper_Run_AveragesRepetitions(t *testing.T) {
	sc := smallSweep()
	sc.RelayRelayBalances = []float64{20}
	sc.TransactionProportionalFees = []float64{0.01}
	ctx := context.Background()

	result, err := newSweeper(1, nil, nil, nil).Run(ctx, sc)
	if err != nil {
		t.Fatal(err)
	}
	cell := result.Cells[0]

	runner := experiment.NewRunner(experiment.RunnerOptions{Logger: quietLogger()})
	sum := make([]float64, sc.TransactionsCount+1)
	for rep := 0; rep < sc.AvgAcrossCount; rep++ {
		r, err := runner.Run(ctx, cell.Config, experiment.Options{
			TransactionsCount: sc.TransactionsCount,
			Seed:              idhash.DeriveSeed(sc.Seed, cell.ConfigID, rep),
			Values:            uniformValues(sc),
		})
		if err != nil {
			t.Fatal(err)
		}
		for i, v := range r.MeanBalances() {
			sum[i] += v
		}
	}

	for i := range sum {
		want := sum[i] / float64(sc.AvgAcrossCount)
		if diff := cell.MeanBalance[i] - want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("point %d: got %v, want %v", i, cell.MeanBalance[i], want)
		}
	}
}

func TestSweeper_Run_ResumesStoredCells(t *testing.T) {
	sc := smallSweep()
	ctx := context.Background()
	cells := memory.NewSweepCellStore()

	first, err := newSweeper(2, cells, nil, nil).Run(ctx, sc)
	if err != nil {
		t.Fatal(err)
	}
	stored, _ := cells.GetBySweepID(ctx, first.SweepID)
	if len(stored) != 4 {
		t.Fatalf("expected 4 stored cells, got %d", len(stored))
	}

	second, err := newSweeper(2, cells, nil, nil).Run(ctx, sc)
	if err != nil {
		t.Fatal(err)
	}
	if second.Computed != 0 || second.Resumed != 4 {
		t.Errorf("expected full resume, computed %d resumed %d", second.Computed, second.Resumed)
	}
	for i := range first.Cells {
		if first.Cells[i].FinalMeanBalance() != second.Cells[i].FinalMeanBalance() {
			t.Errorf("cell %d differs after resume", i)
		}
	}
}

func TestSweeper_Run_ReusesPersistedRepetitions(t *testing.T) {
	sc := smallSweep()
	ctx := context.Background()
	runs := memory.NewRunStore()
	series := memory.NewSeriesStore()

	first, err := newSweeper(2, memory.NewSweepCellStore(), runs, series).Run(ctx, sc)
	if err != nil {
		t.Fatal(err)
	}
	persisted, _ := runs.GetBySweepID(ctx, first.SweepID)
	if len(persisted) != 8 {
		t.Fatalf("expected 8 persisted runs, got %d", len(persisted))
	}

	// Cells lost, runs kept: rerunning must not collide with stored runs
	second, err := newSweeper(2, memory.NewSweepCellStore(), runs, series).Run(ctx, sc)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if second.Computed != 4 {
		t.Errorf("expected 4 computed cells, got %d", second.Computed)
	}
	for i := range first.Cells {
		if first.Cells[i].FinalMeanBalance() != second.Cells[i].FinalMeanBalance() {
			t.Errorf("cell %d differs after reuse", i)
		}
	}
}

func TestSweeper_Run_RerunsStoredRunsWithoutSeries(t *testing.T) {
	sc := smallSweep()
	ctx := context.Background()
	runs := memory.NewRunStore()

	// Summaries only, as with Postgres and no ClickHouse
	first, err := newSweeper(2, memory.NewSweepCellStore(), runs, nil).Run(ctx, sc)
	if err != nil {
		t.Fatal(err)
	}

	second, err := newSweeper(2, memory.NewSweepCellStore(), runs, nil).Run(ctx, sc)
	if err != nil {
		t.Fatalf("rerun over stored summaries failed: %v", err)
	}
	if second.Computed != 4 {
		t.Errorf("expected 4 computed cells, got %d", second.Computed)
	}
	if persisted, _ := runs.GetBySweepID(ctx, first.SweepID); len(persisted) != 8 {
		t.Errorf("expected 8 stored runs, got %d", len(persisted))
	}
	for i := range first.Cells {
		if first.Cells[i].FinalMeanBalance() != second.Cells[i].FinalMeanBalance() {
			t.Errorf("cell %d differs after rerun", i)
		}
	}
}

func TestSweeper_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSweeper(2, nil, nil, nil).Run(ctx, smallSweep())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.SweepConfig)
	}{
		{"empty axis", func(sc *domain.SweepConfig) { sc.ClientRelayBalances = nil }},
		{"no transactions", func(sc *domain.SweepConfig) { sc.TransactionsCount = 0 }},
		{"no repetitions", func(sc *domain.SweepConfig) { sc.AvgAcrossCount = 0 }},
		{"zero cpu ratio", func(sc *domain.SweepConfig) { sc.CPURatio = 0 }},
		{"cpu ratio above one", func(sc *domain.SweepConfig) { sc.CPURatio = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := smallSweep()
			tt.mutate(&sc)
			if err := Validate(sc); !errors.Is(err, ErrInvalidSweep) {
				t.Errorf("expected ErrInvalidSweep, got %v", err)
			}
		})
	}

	sc := smallSweep()
	sc.TransactionProportionalFees = []float64{1.5}
	if err := Validate(sc); !errors.Is(err, domain.ErrInvalidProportionalFee) {
		t.Errorf("expected ErrInvalidProportionalFee, got %v", err)
	}

	if err := Validate(smallSweep()); err != nil {
		t.Errorf("valid sweep rejected: %v", err)
	}
	if err := Validate(domain.DefaultSweepConfig()); err != nil {
		t.Errorf("default sweep rejected: %v", err)
	}
}

func TestWorkers(t *testing.T) {
	if w := Workers(0.0001); w != 1 {
		t.Errorf("expected at least one worker, got %d", w)
	}
	if w := Workers(1); w < 1 {
		t.Errorf("expected positive worker count, got %d", w)
	}
}

func TestLogNormalValues(t *testing.T) {
	cfg := LogNormalValues(domain.SweepConfig{TransactionsCount: 123})
	if cfg.Kind != sampling.KindLogNormal || cfg.Size != 123 {
		t.Errorf("unexpected values config %+v", cfg)
	}
}
