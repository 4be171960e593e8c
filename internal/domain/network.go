package domain

import (
	"errors"
	"fmt"
)

// Configuration validation errors.
var (
	ErrInvalidProportionalFee = errors.New("transaction proportional fee must be in [0, 1)")
	ErrInvalidHopsNumber      = errors.New("hops number must not be negative")
	ErrInvalidPopulation      = errors.New("invalid relay/client population")
	ErrInvalidChannelCost     = errors.New("channel cost must not be negative")
)

// NetworkConfig is the immutable parameter bundle of one simulated network.
// It is passed by value and never mutated after construction.
type NetworkConfig struct {
	// Channel funding defaults
	DefaultBalanceClientRelayChannelClient float64 // client side of a client-relay channel
	DefaultBalanceClientRelayChannelRelay  float64 // relay side of a client-relay channel
	DefaultBalanceRelayRelayChannel        float64 // each side of a relay-relay channel
	ChannelCost                            float64 // on-chain opening cost, paid by the initiator

	// Fee schedule
	RelayTransactionFee        float64 // flat per-hop fee
	TransactionProportionalFee float64 // fractional per-hop fee, 0 <= f < 1

	// Routing
	HopsNumber         int  // intermediate relay count
	IsLiquidityAssumed bool // optimistic regime: never check balances

	// Population
	NumberOfRelays          int
	NumberOfClients         int
	NumberOfRelaysPerClient int
}

// FeeBearingHops returns the number of hops that deduct a fee:
// source->first relay, each middle hop, and final relay->target.
func (c NetworkConfig) FeeBearingHops() int {
	return c.HopsNumber + 2
}

// MeshChannelCount returns C(n, 2) for the relay mesh.
func (c NetworkConfig) MeshChannelCount() int {
	return c.NumberOfRelays * (c.NumberOfRelays - 1) / 2
}

// MeshConstructionCost returns the total channel cost paid for the relay mesh.
func (c NetworkConfig) MeshConstructionCost() float64 {
	return c.ChannelCost * float64(c.MeshChannelCount())
}

// Validate checks configuration invariants.
func (c NetworkConfig) Validate() error {
	var errs []error

	if c.TransactionProportionalFee < 0 || c.TransactionProportionalFee >= 1 {
		errs = append(errs, fmt.Errorf("%w: got %v", ErrInvalidProportionalFee, c.TransactionProportionalFee))
	}
	if c.HopsNumber < 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidHopsNumber, c.HopsNumber))
	}
	if c.ChannelCost < 0 {
		errs = append(errs, fmt.Errorf("%w: got %v", ErrInvalidChannelCost, c.ChannelCost))
	}
	if c.NumberOfRelays < 2 {
		errs = append(errs, fmt.Errorf("%w: need at least 2 relays, got %d", ErrInvalidPopulation, c.NumberOfRelays))
	}
	if c.NumberOfClients < 0 {
		errs = append(errs, fmt.Errorf("%w: negative client count %d", ErrInvalidPopulation, c.NumberOfClients))
	}
	if c.NumberOfClients > 0 && c.NumberOfRelaysPerClient < 1 {
		errs = append(errs, fmt.Errorf("%w: clients need at least 1 bootstrap relay", ErrInvalidPopulation))
	}
	if c.NumberOfRelaysPerClient > c.NumberOfRelays {
		errs = append(errs, fmt.Errorf("%w: %d relays per client exceeds %d relays",
			ErrInvalidPopulation, c.NumberOfRelaysPerClient, c.NumberOfRelays))
	}

	return errors.Join(errs...)
}

// String renders the parameters that distinguish sweep cells.
func (c NetworkConfig) String() string {
	return fmt.Sprintf("r2r %g r2c %g base-fee %g proportional-fee %g",
		c.DefaultBalanceRelayRelayChannel,
		c.DefaultBalanceClientRelayChannelRelay,
		c.RelayTransactionFee,
		c.TransactionProportionalFee,
	)
}
