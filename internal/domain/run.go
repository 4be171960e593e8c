package domain

// SeriesPoint is one step of a simulation run time series.
// Index 0 is the state right after topology construction.
type SeriesPoint struct {
	RunID         string
	Index         int
	Value         float64 // net value requested by the sender (0 at index 0)
	Succeeded     bool
	MeanBalance   float64 // mean of per-relay total balances
	NetProfitMean float64 // fee revenue minus mesh cost, per relay
	FailureRatio  float64 // failed / attempted so far
	Expected      float64 // closed-form expectation of MeanBalance
}

// RunSummary describes a completed simulation run.
type RunSummary struct {
	RunID      string // deterministic hash of config, seed, transactions and values
	ConfigID   string // short identifier of the network config
	SweepID    string // empty for standalone runs
	Repetition int    // repetition index within a sweep cell
	Config     NetworkConfig
	Seed       uint64
	Values     string // transaction value distribution, e.g. "uniform[1,10)"

	TransactionsCount int
	Succeeded         int
	Failed            int
	FailureRatio      float64

	InitialMeanBalance float64
	FinalMeanBalance   float64
	FinalNetProfitMean float64
	MeanAbsoluteError  float64 // mean |expected - simulated|; meaningful in the fee-only regime

	StartedAt   int64 // Unix ms
	CompletedAt int64 // Unix ms
}

// SweepConfig describes a parameter-grid sweep.
type SweepConfig struct {
	Base                        NetworkConfig
	RelayRelayBalances          []float64
	ClientRelayBalances         []float64
	TransactionProportionalFees []float64
	TransactionsCount           int
	AvgAcrossCount              int     // repetitions averaged per cell
	CPURatio                    float64 // fraction of CPUs used by the worker pool
	Seed                        uint64
}

// Default sweep grid.
var (
	DefaultRelayRelayBalances          = []float64{1e6, 5e6, 1e7, 1e8}
	DefaultClientRelayBalances         = []float64{1e6, 5e6, 1e7, 1e8}
	DefaultTransactionProportionalFees = []float64{0.005, 0.01, 0.02, 0.03, 0.04, 0.05}
)

// Default sweep sizing.
const (
	DefaultSweepTransactions = 10000
	DefaultAvgAcrossCount    = 5
	DefaultCPURatio          = 0.75
)

// DefaultSweepConfig returns the default fee and balance grid.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Base:                        PresetConfigSweepDefault,
		RelayRelayBalances:          DefaultRelayRelayBalances,
		ClientRelayBalances:         DefaultClientRelayBalances,
		TransactionProportionalFees: DefaultTransactionProportionalFees,
		TransactionsCount:           DefaultSweepTransactions,
		AvgAcrossCount:              DefaultAvgAcrossCount,
		CPURatio:                    DefaultCPURatio,
	}
}

// Cells expands the grid in R2R, R2C, fee order.
func (s SweepConfig) Cells() []NetworkConfig {
	cells := make([]NetworkConfig, 0,
		len(s.RelayRelayBalances)*len(s.ClientRelayBalances)*len(s.TransactionProportionalFees))
	for _, r2r := range s.RelayRelayBalances {
		for _, r2c := range s.ClientRelayBalances {
			for _, fee := range s.TransactionProportionalFees {
				cfg := s.Base
				cfg.DefaultBalanceRelayRelayChannel = r2r
				cfg.DefaultBalanceClientRelayChannelRelay = r2c
				cfg.DefaultBalanceClientRelayChannelClient = r2c
				cfg.TransactionProportionalFee = fee
				cells = append(cells, cfg)
			}
		}
	}
	return cells
}

// SweepCell is the averaged outcome of one grid cell.
type SweepCell struct {
	SweepID      string
	ConfigID     string
	Index        int // position in the grid expansion order
	Config       NetworkConfig
	Repetitions  int
	MeanBalance  []float64 // element-wise average across repetitions
	FailureRatio []float64 // element-wise average across repetitions
}

// FinalMeanBalance returns the last averaged mean balance, or 0 if empty.
func (c *SweepCell) FinalMeanBalance() float64 {
	if len(c.MeanBalance) == 0 {
		return 0
	}
	return c.MeanBalance[len(c.MeanBalance)-1]
}

// FinalFailureRatio returns the last averaged failure ratio, or 0 if empty.
func (c *SweepCell) FinalFailureRatio() float64 {
	if len(c.FailureRatio) == 0 {
		return 0
	}
	return c.FailureRatio[len(c.FailureRatio)-1]
}
