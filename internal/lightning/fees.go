package lightning

import (
	"math"

	"ln-relay-lab/internal/domain"
)

// FeeSchedule is the per-hop fee model: a flat base fee plus a proportional
// fee on the forwarded amount.
type FeeSchedule struct {
	Base         float64
	Proportional float64 // 0 <= Proportional < 1
	Hops         int     // fee-bearing hops covered by GrossUp
}

// NewFeeSchedule builds the fee schedule of a network configuration.
func NewFeeSchedule(cfg domain.NetworkConfig) FeeSchedule {
	return FeeSchedule{
		Base:         cfg.RelayTransactionFee,
		Proportional: cfg.TransactionProportionalFee,
		Hops:         cfg.FeeBearingHops(),
	}
}

// GrossUp returns the amount the sender must forward so that after Hops
// sequential Deduct calls exactly value remains.
//
//	gross = value/(1-p)^n + base * sum_{k=1..n} 1/(1-p)^k
//
// With p = 0 this is value + base*n; with base = 0 it is value/(1-p)^n.
// The additive form value + base*n + (value/(1-p)^n - value) agrees only in
// those two cases. With both fees set it leaves the target short, because the
// proportional fee is also charged on the base fees still in flight, so the
// exact inverse is used instead.
func (f FeeSchedule) GrossUp(value float64) float64 {
	keep := 1 - f.Proportional
	gross := value / math.Pow(keep, float64(f.Hops))
	for k := 1; k <= f.Hops; k++ {
		gross += f.Base / math.Pow(keep, float64(k))
	}
	return gross
}

// Deduct applies one hop's fee and returns the forwarded remainder and the fee.
func (f FeeSchedule) Deduct(value float64) (float64, float64) {
	fee := f.Base + f.Proportional*value
	return value - fee, fee
}
