package events

import (
	"time"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/lightning"
)

// RunCompletedEvent is published to the subject "runs.{config_id}" in JetStream
// once a simulation run has finished.
type RunCompletedEvent struct {
	// Run identifiers
	RunID      string `json:"run_id"`
	ConfigID   string `json:"config_id"`
	SweepID    string `json:"sweep_id,omitempty"`
	Repetition int    `json:"repetition"`

	// Network parameters
	Network   string `json:"network"` // balances and fees, as rendered by NetworkConfig.String
	Liquidity string `json:"liquidity"`
	Relays    int    `json:"relays"`
	Clients   int    `json:"clients"`
	Hops      int    `json:"hops"`

	// Workload
	Seed              uint64 `json:"seed"`
	Values            string `json:"values"`
	TransactionsCount int    `json:"transactions_count"`

	// Outcome
	Succeeded          int     `json:"succeeded"`
	Failed             int     `json:"failed"`
	FailureRatio       float64 `json:"failure_ratio"`
	InitialMeanBalance float64 `json:"initial_mean_balance"`
	FinalMeanBalance   float64 `json:"final_mean_balance"`
	FinalNetProfitMean float64 `json:"final_net_profit_mean"`
	MeanAbsoluteError  float64 `json:"mean_absolute_error"`

	// Timing information
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromRunSummary converts a run summary to a RunCompletedEvent for publishing.
// Channel balances may be infinite and are only carried in the Network text.
func FromRunSummary(s domain.RunSummary) *RunCompletedEvent {
	return &RunCompletedEvent{
		RunID:              s.RunID,
		ConfigID:           s.ConfigID,
		SweepID:            s.SweepID,
		Repetition:         s.Repetition,
		Network:            s.Config.String(),
		Liquidity:          lightning.PolicyFor(s.Config.IsLiquidityAssumed).Name(),
		Relays:             s.Config.NumberOfRelays,
		Clients:            s.Config.NumberOfClients,
		Hops:               s.Config.HopsNumber,
		Seed:               s.Seed,
		Values:             s.Values,
		TransactionsCount:  s.TransactionsCount,
		Succeeded:          s.Succeeded,
		Failed:             s.Failed,
		FailureRatio:       s.FailureRatio,
		InitialMeanBalance: s.InitialMeanBalance,
		FinalMeanBalance:   s.FinalMeanBalance,
		FinalNetProfitMean: s.FinalNetProfitMean,
		MeanAbsoluteError:  s.MeanAbsoluteError,
		StartedAt:          time.UnixMilli(s.StartedAt).UTC(),
		CompletedAt:        time.UnixMilli(s.CompletedAt).UTC(),
		PublishedAt:        time.Now().UTC(),
	}
}
