package migrations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	chstore "ln-relay-lab/internal/storage/clickhouse"
)

// ErrMissingDatabase is returned when a ClickHouse DSN names no database.
var ErrMissingDatabase = errors.New("clickhouse dsn missing database")

// RunClickhouseMigrations creates the database named in dsn if needed and
// applies the embedded run_series schema. Returns a connection to that
// database for the series store.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	target, err := targetDatabase(dsn)
	if err != nil {
		return nil, err
	}

	admin, err := chstore.Open(ctx, target.WithDatabase(""))
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	createErr := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(target.Database))
	if err := admin.Close(); err != nil && createErr == nil {
		createErr = fmt.Errorf("close admin connection: %w", err)
	}
	if createErr != nil {
		return nil, fmt.Errorf("create database %s: %w", target.Database, createErr)
	}

	conn, err := chstore.Open(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", target.Database, err)
	}
	if err := applyClickhouse(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn) error {
	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		return err
	}
	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		// The native protocol runs one statement per Exec.
		for i, stmt := range splitStatements(string(data)) {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s statement %d: %w", file, i+1, err)
			}
		}
	}
	return nil
}

func targetDatabase(dsn string) (chstore.DSN, error) {
	d, err := chstore.ParseDSN(dsn)
	if err != nil {
		return chstore.DSN{}, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	if d.Database == "" {
		return chstore.DSN{}, ErrMissingDatabase
	}
	return d, nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// splitStatements splits a script on semicolons outside single-quoted
// literals. "--" line comments are dropped; '' inside a literal is an
// escaped quote.
func splitStatements(script string) []string {
	var (
		stmts   []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(script); i++ {
		ch := script[i]
		switch {
		case inQuote:
			cur.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(script) && script[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
				} else {
					inQuote = false
				}
			}
		case ch == '\'':
			inQuote = true
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	flush()
	return stmts
}
