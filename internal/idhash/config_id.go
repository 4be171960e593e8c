package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"ln-relay-lab/internal/domain"
)

// configIDBytes is the digest prefix kept by ConfigID.
const configIDBytes = 12

// canonicalConfig renders every NetworkConfig field in a fixed order.
func canonicalConfig(cfg domain.NetworkConfig) string {
	return fmt.Sprintf("%g|%g|%g|%g|%g|%g|%d|%t|%d|%d|%d",
		cfg.DefaultBalanceClientRelayChannelClient,
		cfg.DefaultBalanceClientRelayChannelRelay,
		cfg.DefaultBalanceRelayRelayChannel,
		cfg.ChannelCost,
		cfg.RelayTransactionFee,
		cfg.TransactionProportionalFee,
		cfg.HopsNumber,
		cfg.IsLiquidityAssumed,
		cfg.NumberOfRelays,
		cfg.NumberOfClients,
		cfg.NumberOfRelaysPerClient,
	)
}

// ConfigID computes a short deterministic identifier for a network config.
// Formula: base58(SHA256(canonical config)[:12])
// Used as the config_id column and as the NATS subject token.
func ConfigID(cfg domain.NetworkConfig) string {
	hash := sha256.Sum256([]byte(canonicalConfig(cfg)))
	return base58.Encode(hash[:configIDBytes])
}

// DeriveSeed derives an independent RNG seed for one repetition of one
// sweep cell.
// Formula: first 8 bytes (big endian) of SHA256(base_seed|config_id|repetition)
func DeriveSeed(baseSeed uint64, configID string, repetition int) uint64 {
	data := fmt.Sprintf("%d|%s|%d", baseSeed, configID, repetition)
	hash := sha256.Sum256([]byte(data))
	return binary.BigEndian.Uint64(hash[:8])
}
