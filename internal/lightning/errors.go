package lightning

import (
	"errors"
	"fmt"
)

// Engine errors. All but ErrPathInfeasible are fatal: they signal a
// topology-construction, routing or caller bug.
var (
	ErrDuplicateChannel  = errors.New("duplicate channel")
	ErrSelfChannel       = errors.New("channel endpoints must differ")
	ErrNoChannel         = errors.New("no channel")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidValue      = errors.New("invalid value")
	ErrUnknownNode       = errors.New("unknown node")
	ErrNotClient         = errors.New("node is not a client")
	ErrNoBootstrapRelays = errors.New("client needs at least one bootstrap relay")
	ErrNoUntrimmedPath   = errors.New("no untrimmed path")

	// ErrPathInfeasible is the recovered outcome of liquidity verification.
	// Network.Transact reports it as a false return, never as an error.
	ErrPathInfeasible = errors.New("path infeasible")
)

// ChannelError identifies the node pair involved in a channel-level failure.
type ChannelError struct {
	From NodeID
	To   NodeID
	Err  error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// HopError identifies the failing hop of a payment path.
type HopError struct {
	Index int // zero-based hop index along the path
	From  NodeID
	To    NodeID
	Value float64 // forwarded amount at this hop
	Err   error
}

func (e *HopError) Error() string {
	return fmt.Sprintf("hop %d (%s -> %s, value %g): %v", e.Index, e.From, e.To, e.Value, e.Err)
}

func (e *HopError) Unwrap() error {
	return e.Err
}
