package server

import (
	"math"
	"strconv"
	"time"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/lightning"
)

// number is a float64 that encodes infinities and NaN as JSON strings.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte(strconv.Quote(strconv.FormatFloat(f, 'g', -1, 64))), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

func (n *number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if u, err := strconv.Unquote(s); err == nil {
		s = u
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = number(f)
	return nil
}

// ConfigView is the JSON form of a network config.
type ConfigView struct {
	ClientRelayClientBalance number `json:"client_relay_client_balance"`
	ClientRelayRelayBalance  number `json:"client_relay_relay_balance"`
	RelayRelayBalance        number `json:"relay_relay_balance"`
	ChannelCost              number `json:"channel_cost"`
	RelayTransactionFee      number `json:"relay_transaction_fee"`
	ProportionalFee          number `json:"proportional_fee"`
	HopsNumber               int    `json:"hops_number"`
	Liquidity                string `json:"liquidity"`
	Relays                   int    `json:"relays"`
	Clients                  int    `json:"clients"`
	RelaysPerClient          int    `json:"relays_per_client"`
}

func newConfigView(c domain.NetworkConfig) ConfigView {
	return ConfigView{
		ClientRelayClientBalance: number(c.DefaultBalanceClientRelayChannelClient),
		ClientRelayRelayBalance:  number(c.DefaultBalanceClientRelayChannelRelay),
		RelayRelayBalance:        number(c.DefaultBalanceRelayRelayChannel),
		ChannelCost:              number(c.ChannelCost),
		RelayTransactionFee:      number(c.RelayTransactionFee),
		ProportionalFee:          number(c.TransactionProportionalFee),
		HopsNumber:               c.HopsNumber,
		Liquidity:                lightning.PolicyFor(c.IsLiquidityAssumed).Name(),
		Relays:                   c.NumberOfRelays,
		Clients:                  c.NumberOfClients,
		RelaysPerClient:          c.NumberOfRelaysPerClient,
	}
}

// RunView is the JSON form of a run summary.
type RunView struct {
	RunID              string     `json:"run_id"`
	ConfigID           string     `json:"config_id"`
	SweepID            string     `json:"sweep_id,omitempty"`
	Repetition         int        `json:"repetition"`
	Config             ConfigView `json:"config"`
	Seed               uint64     `json:"seed"`
	Values             string     `json:"values"`
	TransactionsCount  int        `json:"transactions_count"`
	Succeeded          int        `json:"succeeded"`
	Failed             int        `json:"failed"`
	FailureRatio       number     `json:"failure_ratio"`
	InitialMeanBalance number     `json:"initial_mean_balance"`
	FinalMeanBalance   number     `json:"final_mean_balance"`
	FinalNetProfitMean number     `json:"final_net_profit_mean"`
	MeanAbsoluteError  number     `json:"mean_absolute_error"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        time.Time  `json:"completed_at"`
}

func newRunView(s domain.RunSummary) RunView {
	return RunView{
		RunID:              s.RunID,
		ConfigID:           s.ConfigID,
		SweepID:            s.SweepID,
		Repetition:         s.Repetition,
		Config:             newConfigView(s.Config),
		Seed:               s.Seed,
		Values:             s.Values,
		TransactionsCount:  s.TransactionsCount,
		Succeeded:          s.Succeeded,
		Failed:             s.Failed,
		FailureRatio:       number(s.FailureRatio),
		InitialMeanBalance: number(s.InitialMeanBalance),
		FinalMeanBalance:   number(s.FinalMeanBalance),
		FinalNetProfitMean: number(s.FinalNetProfitMean),
		MeanAbsoluteError:  number(s.MeanAbsoluteError),
		StartedAt:          time.UnixMilli(s.StartedAt).UTC(),
		CompletedAt:        time.UnixMilli(s.CompletedAt).UTC(),
	}
}

// PointView is the JSON form of a series point.
type PointView struct {
	RunID         string `json:"run_id"`
	Index         int    `json:"index"`
	Value         number `json:"value"`
	Succeeded     bool   `json:"succeeded"`
	MeanBalance   number `json:"mean_balance"`
	NetProfitMean number `json:"net_profit_mean"`
	FailureRatio  number `json:"failure_ratio"`
	Expected      number `json:"expected"`
}

func newPointView(p domain.SeriesPoint) PointView {
	return PointView{
		RunID:         p.RunID,
		Index:         p.Index,
		Value:         number(p.Value),
		Succeeded:     p.Succeeded,
		MeanBalance:   number(p.MeanBalance),
		NetProfitMean: number(p.NetProfitMean),
		FailureRatio:  number(p.FailureRatio),
		Expected:      number(p.Expected),
	}
}

// CellView is the JSON form of a sweep cell.
type CellView struct {
	SweepID      string     `json:"sweep_id"`
	ConfigID     string     `json:"config_id"`
	Index        int        `json:"index"`
	Config       ConfigView `json:"config"`
	Repetitions  int        `json:"repetitions"`
	MeanBalance  []number   `json:"mean_balance"`
	FailureRatio []number   `json:"failure_ratio"`
}

func newCellView(c *domain.SweepCell) CellView {
	return CellView{
		SweepID:      c.SweepID,
		ConfigID:     c.ConfigID,
		Index:        c.Index,
		Config:       newConfigView(c.Config),
		Repetitions:  c.Repetitions,
		MeanBalance:  numbers(c.MeanBalance),
		FailureRatio: numbers(c.FailureRatio),
	}
}

func numbers(fs []float64) []number {
	out := make([]number, len(fs))
	for i, f := range fs {
		out[i] = number(f)
	}
	return out
}
