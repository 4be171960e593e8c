package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/storage"
)

// SweepCellStore implements storage.SweepCellStore using PostgreSQL.
// Averaged series are stored as DOUBLE PRECISION[] columns.
type SweepCellStore struct {
	pool *Pool
}

// NewSweepCellStore creates a new SweepCellStore.
func NewSweepCellStore(pool *Pool) *SweepCellStore {
	return &SweepCellStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SweepCellStore = (*SweepCellStore)(nil)

const sweepCellSelect = `
	SELECT
		sweep_id, config_id, cell_index,` + configColumns + `,
		repetitions, mean_balance, failure_ratio
	FROM sweep_cells
`

// Insert adds a new cell. Returns ErrDuplicateKey if (sweep_id, config_id) exists.
func (s *SweepCellStore) Insert(ctx context.Context, c *domain.SweepCell) error {
	if c == nil || c.SweepID == "" || c.ConfigID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sweep_cells (
			sweep_id, config_id, cell_index,` + configColumns + `,
			repetitions, mean_balance, failure_ratio
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17
		)
	`

	args := []any{c.SweepID, c.ConfigID, c.Index}
	args = append(args, configArgs(c.Config)...)
	args = append(args, c.Repetitions, nonNil(c.MeanBalance), nonNil(c.FailureRatio))

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return storeError("insert sweep cell", err)
	}
	return nil
}

// Get retrieves one cell. Returns ErrNotFound if not exists.
func (s *SweepCellStore) Get(ctx context.Context, sweepID, configID string) (*domain.SweepCell, error) {
	row := s.pool.QueryRow(ctx, sweepCellSelect+` WHERE sweep_id = $1 AND config_id = $2`, sweepID, configID)
	c, err := scanSweepCell(row)
	if err != nil {
		return nil, storeError("get sweep cell", err)
	}
	return c, nil
}

// GetBySweepID retrieves all cells of a sweep, ordered by grid index ASC.
func (s *SweepCellStore) GetBySweepID(ctx context.Context, sweepID string) ([]*domain.SweepCell, error) {
	rows, err := s.pool.Query(ctx, sweepCellSelect+` WHERE sweep_id = $1 ORDER BY cell_index ASC`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("query sweep cells: %w", err)
	}
	defer rows.Close()

	var cells []*domain.SweepCell
	for rows.Next() {
		c, err := scanSweepCell(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sweep cell row: %w", err)
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep cell rows: %w", err)
	}
	return cells, nil
}

func scanSweepCell(row pgx.Row) (*domain.SweepCell, error) {
	var c domain.SweepCell

	dest := []any{&c.SweepID, &c.ConfigID, &c.Index}
	dest = append(dest, configDest(&c.Config)...)
	dest = append(dest, &c.Repetitions, &c.MeanBalance, &c.FailureRatio)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &c, nil
}

// nonNil keeps NOT NULL array columns satisfied for empty series.
func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
