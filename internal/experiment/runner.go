// Package experiment drives single simulation runs: it builds a network,
// pushes sampled payments through it and records the relay balance and
// failure-ratio time series next to the closed-form expectation.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/idhash"
	"ln-relay-lab/internal/lightning"
	"ln-relay-lab/internal/metrics"
	"ln-relay-lab/internal/sampling"
	"ln-relay-lab/internal/storage"
)

// DefaultProgressEvery is the logging interval in transactions.
const DefaultProgressEvery = 100

// ErrInvalidOptions is returned for unusable run options.
var ErrInvalidOptions = errors.New("invalid run options")

// Observer receives run progress. Implementations must be safe for
// concurrent use when the Runner is shared by a sweep.
type Observer interface {
	OnPoint(point domain.SeriesPoint)
	OnRunCompleted(summary domain.RunSummary)
}

// Options parameterize one run.
type Options struct {
	TransactionsCount int
	Seed              uint64
	Values            sampling.Config
	PathPolicy        lightning.PathPolicy // nil means the random walk
	FeeAccounting     lightning.FeeAccounting

	// Sweep membership, empty for standalone runs
	SweepID    string
	Repetition int
}

// Result is a completed run.
type Result struct {
	Summary domain.RunSummary
	Series  []domain.SeriesPoint

	// Duplicate is set when the run or its series was already stored.
	Duplicate bool
}

// MeanBalances returns the relay mean balance series.
func (r *Result) MeanBalances() []float64 {
	out := make([]float64, len(r.Series))
	for i, p := range r.Series {
		out[i] = p.MeanBalance
	}
	return out
}

// FailureRatios returns the failure ratio series.
func (r *Result) FailureRatios() []float64 {
	out := make([]float64, len(r.Series))
	for i, p := range r.Series {
		out[i] = p.FailureRatio
	}
	return out
}

// Runner executes simulation runs and optionally persists them.
type Runner struct {
	runStore      storage.RunStore
	seriesStore   storage.SeriesStore
	observers     []Observer
	logger        *slog.Logger
	now           func() time.Time
	progressEvery int
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	RunStore      storage.RunStore    // optional
	SeriesStore   storage.SeriesStore // optional
	Observers     []Observer
	Logger        *slog.Logger
	Clock         func() time.Time
	ProgressEvery int
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	r := &Runner{
		runStore:      opts.RunStore,
		seriesStore:   opts.SeriesStore,
		observers:     opts.Observers,
		logger:        opts.Logger,
		now:           opts.Clock,
		progressEvery: opts.ProgressEvery,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.progressEvery <= 0 {
		r.progressEvery = DefaultProgressEvery
	}
	return r
}

// Run builds a network for cfg and performs opts.TransactionsCount payments
// between uniformly drawn distinct clients.
// Steps:
//  1. Build the network with the run's seed
//  2. Record the initial point
//  3. Transact, recording one point per payment
//  4. Summarize and persist
func (r *Runner) Run(ctx context.Context, cfg domain.NetworkConfig, opts Options) (*Result, error) {
	if opts.TransactionsCount < 0 {
		return nil, fmt.Errorf("%w: negative transactions count %d", ErrInvalidOptions, opts.TransactionsCount)
	}
	startedAt := r.now()

	// 1. Build the network
	lnOpts := []lightning.Option{
		lightning.WithSeed(opts.Seed),
		lightning.WithFeeAccounting(opts.FeeAccounting),
	}
	if opts.PathPolicy != nil {
		lnOpts = append(lnOpts, lightning.WithPathPolicy(opts.PathPolicy))
	}
	network, err := lightning.New(cfg, lnOpts...)
	if err != nil {
		return nil, err
	}

	rng := network.Rand()
	values, err := sampling.New(rng, opts.Values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	clients := network.Clients()
	if opts.TransactionsCount > 0 && len(clients) < 2 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, sampling.ErrTooFewItems)
	}

	configID := idhash.ConfigID(cfg)
	runID := idhash.ComputeRunID(cfg, opts.Seed, opts.TransactionsCount, opts.Values.String(), opts.SweepID, opts.Repetition)
	expected := ExpectedRelayBalance(cfg, opts.TransactionsCount)

	r.logger.Info("run started",
		"run_id", runID,
		"config_id", configID,
		"config", cfg.String(),
		"liquidity", network.Liquidity().Name(),
		"transactions", opts.TransactionsCount,
		"seed", opts.Seed,
	)

	// 2. Initial point
	series := make([]domain.SeriesPoint, 0, opts.TransactionsCount+1)
	initial := domain.SeriesPoint{
		RunID:         runID,
		Index:         0,
		MeanBalance:   network.RelaysMeanTotalBalance(),
		NetProfitMean: network.RelaysMeanBalance(),
		Expected:      expected[0],
	}
	series = append(series, initial)
	r.notifyPoint(initial)

	// 3. Transact
	failed := 0
	for i := 1; i <= opts.TransactionsCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src, dst, err := sampling.Pair(rng, clients)
		if err != nil {
			return nil, err
		}
		value := values.Sample(rng)

		ok, err := network.Transact(src, dst, value)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		if !ok {
			failed++
		}

		point := domain.SeriesPoint{
			RunID:         runID,
			Index:         i,
			Value:         value,
			Succeeded:     ok,
			MeanBalance:   network.RelaysMeanTotalBalance(),
			NetProfitMean: network.RelaysMeanBalance(),
			FailureRatio:  float64(failed) / float64(i),
			Expected:      expected[i],
		}
		series = append(series, point)
		r.notifyPoint(point)

		if i%r.progressEvery == 0 {
			r.logger.Info("run progress",
				"run_id", runID,
				"iteration", i,
				"succeeded", ok,
				"mean_balance", point.MeanBalance,
				"failure_ratio", point.FailureRatio,
			)
		}
	}

	// 4. Summarize and persist
	result := &Result{Series: series}
	last := series[len(series)-1]
	result.Summary = domain.RunSummary{
		RunID:              runID,
		ConfigID:           configID,
		SweepID:            opts.SweepID,
		Repetition:         opts.Repetition,
		Config:             cfg,
		Seed:               opts.Seed,
		Values:             opts.Values.String(),
		TransactionsCount:  opts.TransactionsCount,
		Succeeded:          opts.TransactionsCount - failed,
		Failed:             failed,
		FailureRatio:       last.FailureRatio,
		InitialMeanBalance: initial.MeanBalance,
		FinalMeanBalance:   last.MeanBalance,
		FinalNetProfitMean: last.NetProfitMean,
		MeanAbsoluteError:  metrics.MeanAbsoluteError(expected, result.MeanBalances()),
		StartedAt:          startedAt.UnixMilli(),
		CompletedAt:        r.now().UnixMilli(),
	}

	if err := r.persist(ctx, result); err != nil {
		return nil, err
	}

	for _, o := range r.observers {
		o.OnRunCompleted(result.Summary)
	}

	r.logger.Info("run completed",
		"run_id", runID,
		"succeeded", result.Summary.Succeeded,
		"failed", failed,
		"final_mean_balance", result.Summary.FinalMeanBalance,
		"mean_absolute_error", result.Summary.MeanAbsoluteError,
		"duration_ms", result.Summary.CompletedAt-result.Summary.StartedAt,
	)

	return result, nil
}

func (r *Runner) notifyPoint(p domain.SeriesPoint) {
	for _, o := range r.observers {
		o.OnPoint(p)
	}
}

// persist writes the summary first so a series never exists without its run.
// Run ids hash every input of a seeded run, so a duplicate key means this
// exact run is already stored; it is reported on result and not an error.
func (r *Runner) persist(ctx context.Context, result *Result) error {
	if r.runStore != nil {
		err := r.runStore.Insert(ctx, &result.Summary)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			result.Duplicate = true
		case err != nil:
			return fmt.Errorf("store run %s: %w", result.Summary.RunID, err)
		}
	}

	if r.seriesStore != nil {
		points := make([]*domain.SeriesPoint, len(result.Series))
		for i := range result.Series {
			points[i] = &result.Series[i]
		}
		err := r.seriesStore.InsertBulk(ctx, points)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			result.Duplicate = true
		case err != nil:
			return fmt.Errorf("store series %s: %w", result.Summary.RunID, err)
		}
	}

	if result.Duplicate {
		r.logger.Info("run already stored", "run_id", result.Summary.RunID)
	}
	return nil
}
