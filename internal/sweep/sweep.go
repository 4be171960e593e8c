// Package sweep runs a parameter grid of simulations in parallel.
// Each grid cell is repeated AvgAcrossCount times with independent seeds and
// its series are averaged element-wise into a domain.SweepCell.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/experiment"
	"ln-relay-lab/internal/idhash"
	"ln-relay-lab/internal/metrics"
	"ln-relay-lab/internal/sampling"
	"ln-relay-lab/internal/storage"
)

// ErrInvalidSweep is returned for an unusable sweep configuration.
var ErrInvalidSweep = errors.New("invalid sweep config")

// Sweeper coordinates the grid execution.
type Sweeper struct {
	runner      *experiment.Runner
	cellStore   storage.SweepCellStore
	seriesStore storage.SeriesStore
	values      func(domain.SweepConfig) sampling.Config
	workers     int
	logger      *slog.Logger
}

// Options for creating a Sweeper.
type Options struct {
	Runner *experiment.Runner // required

	// CellStore persists finished cells. Cells already present for the
	// sweep are loaded instead of recomputed.
	CellStore storage.SweepCellStore
	// SeriesStore, when set, lets repetitions persisted by an interrupted
	// sweep be reused.
	SeriesStore storage.SeriesStore

	// Values selects the value distribution. Defaults to LogNormalValues.
	Values func(domain.SweepConfig) sampling.Config
	// Workers overrides the CPU-ratio derived worker count.
	Workers int
	Logger  *slog.Logger
}

// New creates a Sweeper.
func New(opts Options) *Sweeper {
	s := &Sweeper{
		runner:      opts.Runner,
		cellStore:   opts.CellStore,
		seriesStore: opts.SeriesStore,
		values:      opts.Values,
		workers:     opts.Workers,
		logger:      opts.Logger,
	}
	if s.values == nil {
		s.values = LogNormalValues
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// LogNormalValues draws one rescaled log-normal value per transaction.
func LogNormalValues(sc domain.SweepConfig) sampling.Config {
	return sampling.Config{Kind: sampling.KindLogNormal, Size: sc.TransactionsCount}
}

// Workers returns max(1, floor(NumCPU * ratio)).
func Workers(ratio float64) int {
	n := int(math.Floor(float64(runtime.NumCPU()) * ratio))
	return max(n, 1)
}

// Result contains the cells of a finished sweep in grid order.
type Result struct {
	SweepID  string
	Cells    []*domain.SweepCell
	Computed int // cells run by this call
	Resumed  int // cells loaded from the store
}

// Validate checks that the grid can be executed.
func Validate(sc domain.SweepConfig) error {
	var errs []error
	if len(sc.RelayRelayBalances) == 0 || len(sc.ClientRelayBalances) == 0 || len(sc.TransactionProportionalFees) == 0 {
		errs = append(errs, fmt.Errorf("%w: every grid axis needs at least one value", ErrInvalidSweep))
	}
	if sc.TransactionsCount < 1 {
		errs = append(errs, fmt.Errorf("%w: transactions count must be positive, got %d", ErrInvalidSweep, sc.TransactionsCount))
	}
	if sc.AvgAcrossCount < 1 {
		errs = append(errs, fmt.Errorf("%w: avg across count must be positive, got %d", ErrInvalidSweep, sc.AvgAcrossCount))
	}
	if sc.CPURatio <= 0 || sc.CPURatio > 1 {
		errs = append(errs, fmt.Errorf("%w: cpu ratio must be in (0, 1], got %v", ErrInvalidSweep, sc.CPURatio))
	}
	for _, cfg := range sc.Cells() {
		if err := cfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("cell %s: %w", cfg, err))
			break
		}
	}
	return errors.Join(errs...)
}

// Run executes every grid cell of sc.
// Phases:
//  1. Expand the grid and load finished cells
//  2. Run the remaining cells on a bounded worker pool
//  3. Persist each cell as soon as it completes
func (s *Sweeper) Run(ctx context.Context, sc domain.SweepConfig) (*Result, error) {
	if s.runner == nil {
		return nil, fmt.Errorf("%w: runner is required", ErrInvalidSweep)
	}
	if err := Validate(sc); err != nil {
		return nil, err
	}

	sweepID := idhash.ComputeSweepID(sc)
	configs := sc.Cells()
	result := &Result{SweepID: sweepID, Cells: make([]*domain.SweepCell, len(configs))}

	workers := s.workers
	if workers <= 0 {
		workers = Workers(sc.CPURatio)
	}

	// Phase 1: Load finished cells
	var pending []int
	for i, cfg := range configs {
		cell, err := s.loadCell(ctx, sweepID, idhash.ConfigID(cfg))
		if err != nil {
			return nil, err
		}
		if cell != nil {
			result.Cells[i] = cell
			result.Resumed++
			continue
		}
		pending = append(pending, i)
	}

	s.logger.Info("sweep started",
		"sweep_id", sweepID,
		"cells", len(configs),
		"pending", len(pending),
		"repetitions", sc.AvgAcrossCount,
		"transactions", sc.TransactionsCount,
		"workers", workers,
	)

	// Phase 2: Run remaining cells
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, i := range pending {
		g.Go(func() error {
			cell, err := s.runCell(gctx, sweepID, i, configs[i], sc)
			if err != nil {
				return fmt.Errorf("cell %d (%s): %w", i, configs[i], err)
			}

			// Phase 3: Persist
			if s.cellStore != nil {
				if err := s.cellStore.Insert(gctx, cell); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
					return fmt.Errorf("store cell %d: %w", i, err)
				}
			}
			result.Cells[i] = cell

			s.logger.Info("sweep cell completed",
				"sweep_id", sweepID,
				"config_id", cell.ConfigID,
				"config", configs[i].String(),
				"final_mean_balance", cell.FinalMeanBalance(),
				"final_failure_ratio", cell.FinalFailureRatio(),
				"done", done.Add(1),
				"pending", len(pending),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	result.Computed = len(pending)

	s.logger.Info("sweep completed",
		"sweep_id", sweepID,
		"computed", result.Computed,
		"resumed", result.Resumed,
	)
	return result, nil
}

func (s *Sweeper) loadCell(ctx context.Context, sweepID, configID string) (*domain.SweepCell, error) {
	if s.cellStore == nil {
		return nil, nil
	}
	cell, err := s.cellStore.Get(ctx, sweepID, configID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cell %s: %w", configID, err)
	}
	return cell, nil
}

// runCell runs every repetition of one cell and averages the series.
func (s *Sweeper) runCell(ctx context.Context, sweepID string, index int, cfg domain.NetworkConfig, sc domain.SweepConfig) (*domain.SweepCell, error) {
	configID := idhash.ConfigID(cfg)
	balances := make([][]float64, 0, sc.AvgAcrossCount)
	failures := make([][]float64, 0, sc.AvgAcrossCount)

	for rep := 0; rep < sc.AvgAcrossCount; rep++ {
		opts := experiment.Options{
			TransactionsCount: sc.TransactionsCount,
			Seed:              idhash.DeriveSeed(sc.Seed, configID, rep),
			Values:            s.values(sc),
			SweepID:           sweepID,
			Repetition:        rep,
		}

		mb, fr, err := s.repetition(ctx, cfg, opts)
		if err != nil {
			return nil, fmt.Errorf("repetition %d: %w", rep, err)
		}
		balances = append(balances, mb)
		failures = append(failures, fr)
	}

	meanBalance, err := metrics.AverageSeries(balances)
	if err != nil {
		return nil, err
	}
	failureRatio, err := metrics.AverageSeries(failures)
	if err != nil {
		return nil, err
	}

	return &domain.SweepCell{
		SweepID:      sweepID,
		ConfigID:     configID,
		Index:        index,
		Config:       cfg,
		Repetitions:  sc.AvgAcrossCount,
		MeanBalance:  meanBalance,
		FailureRatio: failureRatio,
	}, nil
}

// repetition returns the series of one run, reusing a complete stored series
// when an earlier sweep attempt already persisted it.
func (s *Sweeper) repetition(ctx context.Context, cfg domain.NetworkConfig, opts experiment.Options) ([]float64, []float64, error) {
	if s.seriesStore != nil {
		runID := idhash.ComputeRunID(cfg, opts.Seed, opts.TransactionsCount, opts.Values.String(), opts.SweepID, opts.Repetition)
		points, err := s.seriesStore.GetByRunID(ctx, runID)
		if err != nil {
			return nil, nil, fmt.Errorf("load series %s: %w", runID, err)
		}
		if len(points) == opts.TransactionsCount+1 {
			mb := make([]float64, len(points))
			fr := make([]float64, len(points))
			for i, p := range points {
				mb[i] = p.MeanBalance
				fr[i] = p.FailureRatio
			}
			return mb, fr, nil
		}
	}

	result, err := s.runner.Run(ctx, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	return result.MeanBalances(), result.FailureRatios(), nil
}
