package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"ln-relay-lab/internal/config"
	"ln-relay-lab/internal/events"
	"ln-relay-lab/internal/experiment"
	"ln-relay-lab/internal/observability"
	"ln-relay-lab/internal/storage"
	chstore "ln-relay-lab/internal/storage/clickhouse"
	"ln-relay-lab/internal/storage/memory"
	pgstore "ln-relay-lab/internal/storage/postgres"
)

// loadConfig reads the environment and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if v := c.String("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := c.String("clickhouse-dsn"); v != "" {
		cfg.ClickHouseDSN = v
	}
	if v := c.String("nats-url"); v != "" {
		cfg.NATSURL = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, cfg.NewLogger(os.Stderr), nil
}

// stores holds the storage backends of one command.
type stores struct {
	runs   storage.RunStore
	series storage.SeriesStore
	cells  storage.SweepCellStore
	close  func()
}

// openStores connects to PostgreSQL and ClickHouse when configured and
// falls back to in-memory stores otherwise.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger, poolOpts ...pgstore.PoolOption) (*stores, error) {
	s := &stores{close: func() {}}
	var closers []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, poolOpts...)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		s.runs = pgstore.NewRunStore(pool)
		s.cells = pgstore.NewSweepCellStore(pool)
		logger.Info("using postgres for runs and sweep cells")
	} else {
		s.runs = memory.NewRunStore()
		s.cells = memory.NewSweepCellStore()
		logger.Debug("using in-memory runs and sweep cells")
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickHouseDSN)
		if err != nil {
			for _, closeFn := range closers {
				closeFn()
			}
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		s.series = chstore.NewSeriesStore(conn)
		logger.Info("using clickhouse for run series")
	} else {
		s.series = memory.NewSeriesStore()
		logger.Debug("using in-memory run series")
	}

	s.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return s, nil
}

// openObservers returns the run observers shared by every command:
// Prometheus metrics and, when NATS is configured, run-completed events.
func openObservers(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]experiment.Observer, func(), error) {
	observers := []experiment.Observer{observability.DefaultMetrics}
	if cfg.NATSURL == "" {
		return observers, func() {}, nil
	}

	publisher, err := events.NewPublisher(ctx, cfg.NATSURL, logger)
	if err != nil {
		return nil, nil, err
	}
	observers = append(observers, events.NewNotifier(publisher, logger))
	return observers, func() { publisher.Close() }, nil
}

// outputJSON prints v as indented JSON on stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
