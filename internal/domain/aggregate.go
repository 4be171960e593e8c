package domain

// RunStats summarizes the stored time series of one run.
type RunStats struct {
	RunID  string
	Points int // series length, including the initial point

	Succeeded         int
	Failed            int
	FinalFailureRatio float64

	// Relay mean balance trajectory
	MeanBalanceStart float64
	MeanBalanceEnd   float64
	MeanBalanceMin   float64
	MeanBalanceMax   float64
	MaxDrawdown      float64 // worst peak-to-trough drop of the mean balance

	// Transaction value distribution
	ValueMean   float64
	ValueMedian float64
	ValueP10    float64
	ValueP90    float64
	ValueStddev float64

	MeanAbsoluteError float64 // mean |expected - simulated|
}

// ConfigAggregate summarizes every run of one network config.
type ConfigAggregate struct {
	ConfigID string
	Config   NetworkConfig
	Runs     int

	// Final relay mean balance across runs
	FinalMeanBalanceMean   float64
	FinalMeanBalanceMedian float64
	FinalMeanBalanceP10    float64
	FinalMeanBalanceP90    float64
	FinalMeanBalanceStddev float64

	// Failure ratio across runs
	FailureRatioMean   float64
	FailureRatioStddev float64

	// Runs whose relays ended with positive net profit
	ProfitableRuns int
	ProfitableRate float64
}
