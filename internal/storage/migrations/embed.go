// Package migrations embeds and applies the storage schema: runs and
// sweep_cells in Postgres, run_series in ClickHouse.
package migrations

import "embed"

// PostgresFS holds postgres/*.sql.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds clickhouse/*.sql.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
