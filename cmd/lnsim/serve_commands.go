package main

import (
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"ln-relay-lab/internal/experiment"
	"ln-relay-lab/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve runs, metrics and the live /ws run stream over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "HTTP listen address (default SERVER_ADDR)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("addr") {
				cfg.ServerAddr = c.String("addr")
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

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

			hub := server.NewHub(logger)
			runner := experiment.NewRunner(experiment.RunnerOptions{
				RunStore:    st.runs,
				SeriesStore: st.series,
				Observers:   append(observers, hub),
				Logger:      logger,
			})

			srv := server.New(server.Options{
				Addr:            cfg.ServerAddr,
				Runs:            st.runs,
				Series:          st.series,
				Cells:           st.cells,
				Executor:        runner,
				Hub:             hub,
				ShutdownTimeout: cfg.ShutdownTimeout,
				Logger:          logger,
			})
			return srv.Start(ctx)
		},
	}
}
