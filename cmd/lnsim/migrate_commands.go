package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"ln-relay-lab/internal/storage/migrations"
	pgstore "ln-relay-lab/internal/storage/postgres"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the embedded PostgreSQL and ClickHouse schemas",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" && cfg.ClickHouseDSN == "" {
				return fmt.Errorf("nothing to migrate: set DATABASE_URL and/or CLICKHOUSE_DSN")
			}

			ctx := c.Context
			if cfg.DatabaseURL != "" {
				pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("connect to postgres: %w", err)
				}
				applied, err := migrations.RunPostgresMigrations(ctx, pool)
				pool.Close()
				if err != nil {
					return err
				}
				logger.Info("postgres migrations applied", "files", applied)
			}

			if cfg.ClickHouseDSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
				if err != nil {
					return err
				}
				conn.Close()
				logger.Info("clickhouse migrations applied")
			}

			fmt.Println("✓ migrations applied")
			return nil
		},
	}
}
