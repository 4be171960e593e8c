package experiment

import (
	"context"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/lightning"
	"ln-relay-lab/internal/sampling"
)

// Analytic self-check defaults.
const (
	DefaultEpsilon              = 1e-4
	DefaultAnalyticTransactions = 1000
)

// ExpectedRelayBalance returns the closed-form relay mean balance after
// tx = 0..transactions payments in a liquidity-assumed, base-fee-only
// network where every payment crosses HopsNumber+2 fee-bearing relay hops:
//
//	tx*base_fee*(hops+2)/relays - channel_cost*(relays-1)/2
func ExpectedRelayBalance(cfg domain.NetworkConfig, transactions int) []float64 {
	if transactions < 0 {
		transactions = 0
	}

	relays := float64(cfg.NumberOfRelays)
	perTx := cfg.RelayTransactionFee * float64(cfg.FeeBearingHops()) / relays
	meshShare := cfg.ChannelCost * (relays - 1) / 2

	out := make([]float64, transactions+1)
	for tx := range out {
		out[tx] = float64(tx)*perTx - meshShare
	}
	return out
}

// CalculateError runs cfg and returns the mean absolute difference between
// the expected and the simulated relay mean balance.
func (r *Runner) CalculateError(ctx context.Context, cfg domain.NetworkConfig, opts Options) (float64, *Result, error) {
	result, err := r.Run(ctx, cfg, opts)
	if err != nil {
		return 0, nil, err
	}
	return result.Summary.MeanAbsoluteError, result, nil
}

// AnalyticOptions returns the run options of the analytic self-check:
// uniform values in [1, 2) and full-length paths so that every payment
// earns exactly HopsNumber+2 base fees.
func AnalyticOptions(seed uint64) Options {
	return Options{
		TransactionsCount: DefaultAnalyticTransactions,
		Seed:              seed,
		Values:            sampling.Config{Kind: sampling.KindUniform, Min: 1, Max: 2},
		PathPolicy:        lightning.UntrimmedWalk{},
	}
}

// IsErrorSmallerThanEpsilon runs the analytic preset and reports whether the
// simulation tracks the closed form within epsilon.
func (r *Runner) IsErrorSmallerThanEpsilon(ctx context.Context, seed uint64, epsilon float64) (bool, float64, error) {
	e, _, err := r.CalculateError(ctx, domain.PresetConfigAnalytic, AnalyticOptions(seed))
	if err != nil {
		return false, 0, err
	}
	return e < epsilon, e, nil
}
