package lightning

import "fmt"

// SnapshotSource captures the channels along a set of hops.
type SnapshotSource interface {
	Snapshot(hops []Hop) (*Snapshot, error)
}

// LiquidityPolicy models one liquidity regime.
type LiquidityPolicy interface {
	// Name returns the regime identifier.
	Name() string

	// CheckHop is consulted by Channel.Transact before mutating balances.
	CheckHop(available, value float64) error

	// Verify decides whether hops can carry gross. It must not mutate live
	// channel state. Returns a *HopError wrapping ErrPathInfeasible when
	// some hop lacks liquidity.
	Verify(src SnapshotSource, hops []Hop, gross float64, fees FeeSchedule) error
}

// Liquidity regime names.
const (
	LiquidityAssumedName  = "assumed"
	LiquidityVerifiedName = "verified"
)

// PolicyFor returns the liquidity policy selected by isLiquidityAssumed.
func PolicyFor(isLiquidityAssumed bool) LiquidityPolicy {
	if isLiquidityAssumed {
		return AssumedLiquidity{}
	}
	return VerifiedLiquidity{}
}

// AssumedLiquidity is the optimistic regime: every path is routable and
// channel balances may go negative.
type AssumedLiquidity struct{}

func (AssumedLiquidity) Name() string { return LiquidityAssumedName }

func (AssumedLiquidity) CheckHop(float64, float64) error { return nil }

func (AssumedLiquidity) Verify(SnapshotSource, []Hop, float64, FeeSchedule) error { return nil }

// VerifiedLiquidity is the pessimistic regime: a path is accepted only if
// every hop's sender-side balance covers the forwarded amount.
type VerifiedLiquidity struct{}

func (VerifiedLiquidity) Name() string { return LiquidityVerifiedName }

func (VerifiedLiquidity) CheckHop(available, value float64) error {
	if value > available {
		return fmt.Errorf("%w: have %g, need %g", ErrInsufficientFunds, available, value)
	}
	return nil
}

// Verify replays the payment on a snapshot so that a channel used twice
// along a non-simple path sees the effect of the earlier hop.
func (VerifiedLiquidity) Verify(src SnapshotSource, hops []Hop, gross float64, fees FeeSchedule) error {
	snap, err := src.Snapshot(hops)
	if err != nil {
		return err
	}

	value := gross
	for i, hop := range hops {
		available, err := snap.Balance(hop.From, hop.To)
		if err != nil {
			return &HopError{Index: i, From: hop.From, To: hop.To, Value: value, Err: err}
		}
		if value > available {
			return &HopError{
				Index: i,
				From:  hop.From,
				To:    hop.To,
				Value: value,
				Err:   fmt.Errorf("%w: have %g, need %g", ErrPathInfeasible, available, value),
			}
		}
		if err := snap.Transfer(hop.From, hop.To, value); err != nil {
			return &HopError{Index: i, From: hop.From, To: hop.To, Value: value, Err: err}
		}
		value, _ = fees.Deduct(value)
	}

	return nil
}

var (
	_ LiquidityPolicy = AssumedLiquidity{}
	_ LiquidityPolicy = VerifiedLiquidity{}
)
