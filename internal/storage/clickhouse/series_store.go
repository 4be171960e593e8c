package clickhouse

import (
	"context"
	"fmt"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/storage"
)

// SeriesStore implements storage.SeriesStore using ClickHouse.
type SeriesStore struct {
	conn *Conn
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(conn *Conn) *SeriesStore {
	return &SeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, index).
// MergeTree does not enforce uniqueness, so duplicates are checked explicitly.
func (s *SeriesStore) InsertBulk(ctx context.Context, points []*domain.SeriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates, grouping indexes by run
	type key struct {
		runID string
		index int
	}
	seen := make(map[key]struct{})
	byRun := make(map[string][]uint32)
	for _, p := range points {
		if p == nil || p.RunID == "" || p.Index < 0 {
			return storage.ErrInvalidInput
		}
		k := key{p.RunID, p.Index}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		byRun[p.RunID] = append(byRun[p.RunID], uint32(p.Index))
	}

	// Check for duplicates against existing DB rows
	for runID, indexes := range byRun {
		exists, err := s.exists(ctx, runID, indexes)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO run_series (
			run_id, idx, value, succeeded, mean_balance, net_profit_mean, failure_ratio, expected
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		var succeeded uint8
		if p.Succeeded {
			succeeded = 1
		}
		err = batch.Append(
			p.RunID, uint32(p.Index), p.Value, succeeded,
			p.MeanBalance, p.NetProfitMean, p.FailureRatio, p.Expected,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all points of a run, ordered by index ASC.
func (s *SeriesStore) GetByRunID(ctx context.Context, runID string) ([]*domain.SeriesPoint, error) {
	query := `
		SELECT run_id, idx, value, succeeded, mean_balance, net_profit_mean, failure_ratio, expected
		FROM run_series
		WHERE run_id = ?
		ORDER BY idx ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanSeries(rows)
}

// GetByIndexRange retrieves points of a run within [from, to] (inclusive).
func (s *SeriesStore) GetByIndexRange(ctx context.Context, runID string, from, to int) ([]*domain.SeriesPoint, error) {
	if to < from || to < 0 {
		return nil, nil
	}
	from = max(from, 0)

	query := `
		SELECT run_id, idx, value, succeeded, mean_balance, net_profit_mean, failure_ratio, expected
		FROM run_series
		WHERE run_id = ? AND idx >= ? AND idx <= ?
		ORDER BY idx ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, uint32(from), uint32(to))
	if err != nil {
		return nil, fmt.Errorf("query by index range: %w", err)
	}
	defer rows.Close()

	return scanSeries(rows)
}

// exists checks if any of the given indexes of a run is stored.
func (s *SeriesStore) exists(ctx context.Context, runID string, indexes []uint32) (bool, error) {
	query := `
		SELECT count(*) FROM run_series
		WHERE run_id = ? AND idx IN (?)
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, indexes).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanSeries scans multiple rows.
func scanSeries(rows chRows) ([]*domain.SeriesPoint, error) {
	var points []*domain.SeriesPoint

	for rows.Next() {
		var p domain.SeriesPoint
		var idx uint32
		var succeeded uint8

		err := rows.Scan(
			&p.RunID, &idx, &p.Value, &succeeded,
			&p.MeanBalance, &p.NetProfitMean, &p.FailureRatio, &p.Expected,
		)
		if err != nil {
			return nil, fmt.Errorf("scan series row: %w", err)
		}

		p.Index = int(idx)
		p.Succeeded = succeeded == 1
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series rows: %w", err)
	}

	return points, nil
}
