package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runSelect = `
	SELECT
		run_id, config_id, sweep_id, repetition,` + configColumns + `,
		seed, value_distribution, transactions_count, succeeded, failed, failure_ratio,
		initial_mean_balance, final_mean_balance, final_net_profit_mean, mean_absolute_error,
		started_at, completed_at
	FROM runs
`

// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunSummary) error {
	if r == nil || r.RunID == "" || r.ConfigID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO runs (
			run_id, config_id, sweep_id, repetition,` + configColumns + `,
			seed, value_distribution, transactions_count, succeeded, failed, failure_ratio,
			initial_mean_balance, final_mean_balance, final_net_profit_mean, mean_absolute_error,
			started_at, completed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21,
			$22, $23, $24, $25,
			$26, $27
		)
	`

	args := []any{r.RunID, r.ConfigID, r.SweepID, r.Repetition}
	args = append(args, configArgs(r.Config)...)
	args = append(args,
		int64(r.Seed), r.Values, r.TransactionsCount, r.Succeeded, r.Failed, r.FailureRatio,
		r.InitialMeanBalance, r.FinalMeanBalance, r.FinalNetProfitMean, r.MeanAbsoluteError,
		r.StartedAt, r.CompletedAt,
	)

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return storeError("insert run", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunSummary, error) {
	row := s.pool.QueryRow(ctx, runSelect+` WHERE run_id = $1`, runID)
	r, err := scanRun(row)
	if err != nil {
		return nil, storeError("get run", err)
	}
	return r, nil
}

// GetByConfigID retrieves all runs of a config, ordered by started_at ASC.
func (s *RunStore) GetByConfigID(ctx context.Context, configID string) ([]*domain.RunSummary, error) {
	return s.query(ctx, runSelect+` WHERE config_id = $1 ORDER BY started_at ASC, run_id ASC`, configID)
}

// GetBySweepID retrieves all runs of a sweep, ordered by (config_id, repetition) ASC.
func (s *RunStore) GetBySweepID(ctx context.Context, sweepID string) ([]*domain.RunSummary, error) {
	return s.query(ctx, runSelect+` WHERE sweep_id = $1 ORDER BY config_id ASC, repetition ASC`, sweepID)
}

// List retrieves up to limit runs, most recently completed first.
func (s *RunStore) List(ctx context.Context, limit int) ([]*domain.RunSummary, error) {
	if limit <= 0 {
		return s.query(ctx, runSelect+` ORDER BY completed_at DESC, run_id ASC`)
	}
	return s.query(ctx, runSelect+` ORDER BY completed_at DESC, run_id ASC LIMIT $1`, limit)
}

func (s *RunStore) query(ctx context.Context, query string, args ...any) ([]*domain.RunSummary, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// scanRun scans a single row into a RunSummary.
// Seeds are stored as BIGINT bit patterns of the uint64.
func scanRun(row pgx.Row) (*domain.RunSummary, error) {
	var r domain.RunSummary
	var seed int64

	dest := []any{&r.RunID, &r.ConfigID, &r.SweepID, &r.Repetition}
	dest = append(dest, configDest(&r.Config)...)
	dest = append(dest,
		&seed, &r.Values, &r.TransactionsCount, &r.Succeeded, &r.Failed, &r.FailureRatio,
		&r.InitialMeanBalance, &r.FinalMeanBalance, &r.FinalNetProfitMean, &r.MeanAbsoluteError,
		&r.StartedAt, &r.CompletedAt,
	)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	r.Seed = uint64(seed)
	return &r, nil
}
