// Package storage defines the append-only stores of runs, run series and
// sweep cells. Implementations live in the memory, postgres and clickhouse
// subpackages and share these errors.
package storage

import "errors"

var (
	// ErrNotFound: no run or cell with the requested key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey: a run, point or cell with the same key is already
	// stored. Records are never overwritten.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput: the record is nil or misses a key field.
	ErrInvalidInput = errors.New("invalid input")
)
