package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"ln-relay-lab/internal/observability"
	"ln-relay-lab/internal/reporting"
)

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Render stored runs (and optionally one sweep) as Markdown and CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Output directory for generated files",
				Value:   "reports",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Most recent runs to include (0 for all)",
			},
			&cli.StringFlag{
				Name:  "sweep-id",
				Usage: "Add the cells of this sweep",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
			}

			ctx := c.Context
			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			report, err := reporting.NewGenerator(st.runs, st.series, st.cells).Generate(ctx, reporting.GenerateOptions{
				Limit:   c.Int("limit"),
				SweepID: c.String("sweep-id"),
			})
			if err != nil {
				return fmt.Errorf("generate report: %w", err)
			}
			observability.DefaultMetrics.RecordReport()

			dir := c.String("output-dir")
			files := map[string]string{
				"REPORT.md": reporting.RenderMarkdown(report),
				"runs.csv":  reporting.RenderRunsCSV(report.Runs),
			}
			if report.Sweep != nil {
				files["sweep.csv"] = reporting.RenderSweepCSV(report.Sweep.Cells)
			}
			for _, name := range []string{"REPORT.md", "runs.csv", "sweep.csv"} {
				content, ok := files[name]
				if !ok {
					continue
				}
				if err := writeFile(filepath.Join(dir, name), content); err != nil {
					return err
				}
				fmt.Printf("  - %s\n", filepath.Join(dir, name))
			}

			logger.Info("report generated", "runs", report.RunCount, "configs", report.ConfigCount, "output_dir", dir)
			return nil
		},
	}
}
