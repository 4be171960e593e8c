package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/lightning"
	"ln-relay-lab/internal/metrics"
	"ln-relay-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	runStore   storage.RunStore
	cellStore  storage.SweepCellStore
	aggregator *metrics.Aggregator
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. cellStore may be nil when
// sweeps are not reported.
func NewGenerator(
	runStore storage.RunStore,
	seriesStore storage.SeriesStore,
	cellStore storage.SweepCellStore,
) *Generator {
	return &Generator{
		runStore:   runStore,
		cellStore:  cellStore,
		aggregator: metrics.NewAggregator(runStore, seriesStore),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// GenerateOptions selects what goes into a report.
type GenerateOptions struct {
	Limit   int    // most recent runs to include, <= 0 for all
	SweepID string // adds the sweep section when set
}

// Generate produces a report of the stored runs and, optionally, one sweep.
func (g *Generator) Generate(ctx context.Context, opts GenerateOptions) (*Report, error) {
	runs, err := g.runStore.List(ctx, opts.Limit)
	if err != nil {
		return nil, err
	}

	rows, err := g.generateRunRows(ctx, runs)
	if err != nil {
		return nil, err
	}

	configs, err := g.generateConfigRows(ctx, runs)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		RunCount:    len(rows),
		ConfigCount: len(configs),
		Runs:        rows,
		Configs:     configs,
	}

	if opts.SweepID != "" {
		section, err := g.generateSweepSection(ctx, opts.SweepID)
		if err != nil {
			return nil, err
		}
		report.Sweep = section
	}

	return report, nil
}

// generateRunRows builds run rows, enriched with series statistics when stored.
func (g *Generator) generateRunRows(ctx context.Context, runs []*domain.RunSummary) ([]RunRow, error) {
	rows := make([]RunRow, 0, len(runs))
	for _, run := range runs {
		row := RunRow{
			RunID:              run.RunID,
			ConfigID:           run.ConfigID,
			SweepID:            run.SweepID,
			Repetition:         run.Repetition,
			Liquidity:          lightning.PolicyFor(run.Config.IsLiquidityAssumed).Name(),
			Values:             run.Values,
			Seed:               run.Seed,
			Transactions:       run.TransactionsCount,
			Succeeded:          run.Succeeded,
			Failed:             run.Failed,
			FailureRatio:       run.FailureRatio,
			InitialMeanBalance: run.InitialMeanBalance,
			FinalMeanBalance:   run.FinalMeanBalance,
			FinalNetProfitMean: run.FinalNetProfitMean,
			MeanAbsoluteError:  run.MeanAbsoluteError,
		}

		stats, err := g.aggregator.RunStats(ctx, run.RunID)
		switch {
		case err == nil:
			row.HasSeries = true
			row.MaxDrawdown = stats.MaxDrawdown
			row.ValueMedian = stats.ValueMedian
		case errors.Is(err, metrics.ErrNoSeries):
		default:
			return nil, err
		}

		rows = append(rows, row)
	}

	sortRuns(rows)
	return rows, nil
}

// generateConfigRows aggregates every config that appears among runs.
func (g *Generator) generateConfigRows(ctx context.Context, runs []*domain.RunSummary) ([]ConfigRow, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, run := range runs {
		if _, ok := seen[run.ConfigID]; ok {
			continue
		}
		seen[run.ConfigID] = struct{}{}
		ids = append(ids, run.ConfigID)
	}
	sort.Strings(ids)

	rows := make([]ConfigRow, 0, len(ids))
	for _, id := range ids {
		agg, err := g.aggregator.ConfigAggregate(ctx, id)
		if err != nil {
			return nil, err
		}
		rows = append(rows, ConfigRow{
			ConfigID:         agg.ConfigID,
			Description:      agg.Config.String(),
			Runs:             agg.Runs,
			FinalMeanBalance: agg.FinalMeanBalanceMean,
			FinalMedian:      agg.FinalMeanBalanceMedian,
			FinalP10:         agg.FinalMeanBalanceP10,
			FinalP90:         agg.FinalMeanBalanceP90,
			FinalStddev:      agg.FinalMeanBalanceStddev,
			FailureRatioMean: agg.FailureRatioMean,
			ProfitableRate:   agg.ProfitableRate,
		})
	}
	return rows, nil
}

// generateSweepSection loads the stored cells of a sweep in grid order.
func (g *Generator) generateSweepSection(ctx context.Context, sweepID string) (*SweepSection, error) {
	section := &SweepSection{SweepID: sweepID}
	if g.cellStore == nil {
		return section, nil
	}

	cells, err := g.cellStore.GetBySweepID(ctx, sweepID)
	if err != nil {
		return nil, err
	}
	section.Cells = SweepRows(cells)
	return section, nil
}

// SweepRows converts cells to table rows.
func SweepRows(cells []*domain.SweepCell) []SweepCellRow {
	rows := make([]SweepCellRow, len(cells))
	for i, c := range cells {
		rows[i] = SweepCellRow{
			Index:             c.Index,
			ConfigID:          c.ConfigID,
			RelayRelay:        c.Config.DefaultBalanceRelayRelayChannel,
			ClientRelay:       c.Config.DefaultBalanceClientRelayChannelRelay,
			ProportionalFee:   c.Config.TransactionProportionalFee,
			Repetitions:       c.Repetitions,
			FinalMeanBalance:  c.FinalMeanBalance(),
			FinalFailureRatio: c.FinalFailureRatio(),
		}
	}
	return rows
}
