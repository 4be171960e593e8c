package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/experiment"
	"ln-relay-lab/internal/observability"
	"ln-relay-lab/internal/reporting"
	"ln-relay-lab/internal/storage"
	pgstore "ln-relay-lab/internal/storage/postgres"
	"ln-relay-lab/internal/sweep"
)

func sweepCommand() *cli.Command {
	flags := append(networkFlags(domain.PresetSweepDefault),
		&cli.Float64SliceFlag{
			Name:  "r2r-balances",
			Usage: "Relay-relay channel balances of the grid",
			Value: cli.NewFloat64Slice(domain.DefaultRelayRelayBalances...),
		},
		&cli.Float64SliceFlag{
			Name:  "r2c-balances",
			Usage: "Client-relay channel balances of the grid",
			Value: cli.NewFloat64Slice(domain.DefaultClientRelayBalances...),
		},
		&cli.Float64SliceFlag{
			Name:  "fees",
			Usage: "Proportional fees of the grid",
			Value: cli.NewFloat64Slice(domain.DefaultTransactionProportionalFees...),
		},
		&cli.IntFlag{
			Name:    "transactions",
			Aliases: []string{"n"},
			Usage:   "Payments per repetition",
			Value:   domain.DefaultSweepTransactions,
		},
		&cli.IntFlag{
			Name:  "avg-across",
			Usage: "Repetitions averaged per grid cell",
			Value: domain.DefaultAvgAcrossCount,
		},
		&cli.Float64Flag{
			Name:  "cpu-ratio",
			Usage: "Fraction of CPUs used by the worker pool (default SWEEP_CPU_RATIO)",
		},
		&cli.Uint64Flag{Name: "seed", Usage: "Base seed of the sweep"},
		&cli.StringFlag{
			Name:  "output-dir",
			Usage: "Write sweep.csv and one series CSV per cell to this directory",
		},
	)

	return &cli.Command{
		Name:  "sweep",
		Usage: "Run the parameter grid in parallel and average repetitions per cell",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}
			base, err := networkConfig(c)
			if err != nil {
				return err
			}

			sc := domain.SweepConfig{
				Base:                        base,
				RelayRelayBalances:          c.Float64Slice("r2r-balances"),
				ClientRelayBalances:         c.Float64Slice("r2c-balances"),
				TransactionProportionalFees: c.Float64Slice("fees"),
				TransactionsCount:           c.Int("transactions"),
				AvgAcrossCount:              c.Int("avg-across"),
				CPURatio:                    cfg.SweepCPURatio,
				Seed:                        c.Uint64("seed"),
			}
			if c.IsSet("cpu-ratio") {
				sc.CPURatio = c.Float64("cpu-ratio")
			}
			if err := sweep.Validate(sc); err != nil {
				return err
			}

			ctx := c.Context
			workers := sweep.Workers(sc.CPURatio)
			st, err := openStores(ctx, cfg, logger, pgstore.WithMaxConns(int32(workers+1)))
			if err != nil {
				return err
			}
			defer st.close()

			observers, closeObservers, err := openObservers(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeObservers()

			// In-memory series of a full grid would not fit; keep them only in ClickHouse.
			var series storage.SeriesStore
			if cfg.ClickHouseDSN != "" {
				series = st.series
			}

			runner := experiment.NewRunner(experiment.RunnerOptions{
				RunStore:    st.runs,
				SeriesStore: series,
				Observers:   observers,
				Logger:      logger,
			})
			sweeper := sweep.New(sweep.Options{
				Runner:      runner,
				CellStore:   st.cells,
				SeriesStore: series,
				Workers:     workers,
				Logger:      logger,
			})

			result, err := sweeper.Run(ctx, sc)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			observability.DefaultMetrics.RecordSweep(result.Computed, result.Resumed)

			if dir := c.String("output-dir"); dir != "" {
				if err := writeSweepFiles(dir, result); err != nil {
					return err
				}
			}

			rows := reporting.SweepRows(result.Cells)
			if c.Bool("json") {
				return outputJSON(map[string]any{
					"sweep_id": result.SweepID,
					"computed": result.Computed,
					"resumed":  result.Resumed,
					"cells":    rows,
				})
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tCONFIG\tR2R\tR2C\tFEE\tFINAL MEAN BALANCE\tFINAL FAILURE RATIO")
			for _, r := range rows {
				fmt.Fprintf(w, "%d\t%s\t%g\t%g\t%g\t%.4f\t%.4f\n",
					r.Index, r.ConfigID, r.RelayRelay, r.ClientRelay, r.ProportionalFee,
					r.FinalMeanBalance, r.FinalFailureRatio)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nSweep %s: %d cells (%d computed, %d resumed)\n",
				result.SweepID, len(result.Cells), result.Computed, result.Resumed)
			return nil
		},
	}
}

func writeSweepFiles(dir string, result *sweep.Result) error {
	if err := writeFile(filepath.Join(dir, "sweep.csv"), reporting.RenderSweepCSV(reporting.SweepRows(result.Cells))); err != nil {
		return err
	}
	for _, cell := range result.Cells {
		name := fmt.Sprintf("cell_%03d_%s.csv", cell.Index, cell.ConfigID)
		if err := writeFile(filepath.Join(dir, name), reporting.RenderCellSeriesCSV(cell)); err != nil {
			return err
		}
	}
	return nil
}
