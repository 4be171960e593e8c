package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/events"
	"ln-relay-lab/internal/experiment"
	"ln-relay-lab/internal/lightning"
	"ln-relay-lab/internal/reporting"
)

func runCommand() *cli.Command {
	flags := append(networkFlags(domain.PresetFeeOnly), valueFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:    "transactions",
			Aliases: []string{"n"},
			Usage:   "Number of payments",
			Value:   1000,
		},
		&cli.Uint64Flag{Name: "seed", Usage: "Random seed"},
		&cli.BoolFlag{
			Name:  "include-final-hop-fee",
			Usage: "Credit the fee deducted after delivery to relay revenue",
		},
		&cli.StringFlag{Name: "series-csv", Usage: "Write the run time series to this CSV file"},
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Simulate one network and print the run summary",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}
			network, err := networkConfig(c)
			if err != nil {
				return err
			}
			values, err := valuesConfig(c, c.Int("transactions"))
			if err != nil {
				return err
			}

			ctx := c.Context
			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			observers, closeObservers, err := openObservers(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeObservers()

			runner := experiment.NewRunner(experiment.RunnerOptions{
				RunStore:    st.runs,
				SeriesStore: st.series,
				Observers:   observers,
				Logger:      logger,
			})

			opts := experiment.Options{
				TransactionsCount: c.Int("transactions"),
				Seed:              c.Uint64("seed"),
				Values:            values,
			}
			if c.Bool("include-final-hop-fee") {
				opts.FeeAccounting = lightning.IncludeFinalHop
			}

			result, err := runner.Run(ctx, network, opts)
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			if path := c.String("series-csv"); path != "" {
				if err := writeSeriesCSV(path, result); err != nil {
					return err
				}
			}

			if c.Bool("json") {
				return outputJSON(events.FromRunSummary(result.Summary))
			}
			printSummary(result.Summary)
			return nil
		},
	}
}

func analyticCommand() *cli.Command {
	return &cli.Command{
		Name:  "analytic",
		Usage: "Check the simulated relay mean balance against the closed form",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "seed", Usage: "Random seed"},
			&cli.IntFlag{
				Name:    "transactions",
				Aliases: []string{"n"},
				Usage:   "Number of payments",
				Value:   experiment.DefaultAnalyticTransactions,
			},
			&cli.Float64Flag{
				Name:  "epsilon",
				Usage: "Largest accepted mean absolute error",
				Value: experiment.DefaultEpsilon,
			},
			&cli.StringFlag{Name: "series-csv", Usage: "Write expected and simulated series to this CSV file"},
		},
		Action: func(c *cli.Context) error {
			_, logger, err := loadConfig(c)
			if err != nil {
				return err
			}

			runner := experiment.NewRunner(experiment.RunnerOptions{Logger: logger})
			opts := experiment.AnalyticOptions(c.Uint64("seed"))
			opts.TransactionsCount = c.Int("transactions")

			mae, result, err := runner.CalculateError(c.Context, domain.PresetConfigAnalytic, opts)
			if err != nil {
				return fmt.Errorf("analytic run failed: %w", err)
			}
			if path := c.String("series-csv"); path != "" {
				if err := writeSeriesCSV(path, result); err != nil {
					return err
				}
			}

			passed := mae < c.Float64("epsilon")
			if c.Bool("json") {
				return outputJSON(map[string]any{
					"mean_absolute_error": mae,
					"epsilon":             c.Float64("epsilon"),
					"passed":              passed,
				})
			}

			fmt.Printf("mean absolute error: %.3e (epsilon %.1e)\n", mae, c.Float64("epsilon"))
			if !passed {
				return cli.Exit("simulation diverges from the closed form", 1)
			}
			fmt.Println("✓ simulation tracks the closed form")
			return nil
		},
	}
}

func writeSeriesCSV(path string, result *experiment.Result) error {
	points := make([]*domain.SeriesPoint, len(result.Series))
	for i := range result.Series {
		points[i] = &result.Series[i]
	}
	return writeFile(path, reporting.RenderSeriesCSV(points))
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printSummary(s domain.RunSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run ID:\t%s\n", s.RunID)
	fmt.Fprintf(w, "Config ID:\t%s\n", s.ConfigID)
	fmt.Fprintf(w, "Network:\t%s\n", s.Config)
	fmt.Fprintf(w, "Liquidity:\t%s\n", lightning.PolicyFor(s.Config.IsLiquidityAssumed).Name())
	fmt.Fprintf(w, "Values:\t%s\n", s.Values)
	fmt.Fprintf(w, "Seed:\t%d\n", s.Seed)
	fmt.Fprintf(w, "Transactions:\t%d (%d succeeded, %d failed)\n", s.TransactionsCount, s.Succeeded, s.Failed)
	fmt.Fprintf(w, "Failure ratio:\t%.4f\n", s.FailureRatio)
	fmt.Fprintf(w, "Mean balance:\t%.4f -> %.4f\n", s.InitialMeanBalance, s.FinalMeanBalance)
	fmt.Fprintf(w, "Net profit mean:\t%.4f\n", s.FinalNetProfitMean)
	fmt.Fprintf(w, "Mean abs. error:\t%.4e\n", s.MeanAbsoluteError)
	w.Flush()
}
