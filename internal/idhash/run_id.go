package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"ln-relay-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(canonical config|seed|transactions_count|values|sweep_id|repetition)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	cfg domain.NetworkConfig,
	seed uint64,
	transactionsCount int,
	values string,
	sweepID string,
	repetition int,
) string {
	data := fmt.Sprintf("%s|%d|%d|%s|%s|%d",
		canonicalConfig(cfg),
		seed,
		transactionsCount,
		values,
		sweepID,
		repetition,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSweepID computes a deterministic sweep_id using SHA256 over the
// base config, the grid axes, sizing and seed.
// Returns hex-encoded hash (64 characters).
func ComputeSweepID(s domain.SweepConfig) string {
	var b strings.Builder
	b.WriteString(canonicalConfig(s.Base))
	for _, axis := range [][]float64{s.RelayRelayBalances, s.ClientRelayBalances, s.TransactionProportionalFees} {
		b.WriteString("|")
		for i, v := range axis {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%g", v)
		}
	}
	fmt.Fprintf(&b, "|%d|%d|%d", s.TransactionsCount, s.AvgAcrossCount, s.Seed)

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}
