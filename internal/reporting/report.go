package reporting

import (
	"sort"
	"time"
)

// Report contains all data for a simulation report.
type Report struct {
	GeneratedAt time.Time
	RunCount    int
	ConfigCount int

	Runs    []RunRow
	Configs []ConfigRow
	Sweep   *SweepSection // nil when no sweep was requested
}

// RunRow represents a single run in the runs table.
type RunRow struct {
	RunID        string
	ConfigID     string
	SweepID      string
	Repetition   int
	Liquidity    string // "assumed" | "verified"
	Values       string
	Seed         uint64
	Transactions int
	Succeeded    int
	Failed       int
	FailureRatio float64

	InitialMeanBalance float64
	FinalMeanBalance   float64
	FinalNetProfitMean float64
	MeanAbsoluteError  float64

	// From the stored series, zero when no series is available
	HasSeries   bool
	MaxDrawdown float64
	ValueMedian float64
}

// ConfigRow represents the cross-run summary of one network config.
type ConfigRow struct {
	ConfigID         string
	Description      string
	Runs             int
	FinalMeanBalance float64
	FinalMedian      float64
	FinalP10         float64
	FinalP90         float64
	FinalStddev      float64
	FailureRatioMean float64
	ProfitableRate   float64
}

// SweepSection holds the cells of one parameter sweep.
type SweepSection struct {
	SweepID string
	Cells   []SweepCellRow
}

// SweepCellRow represents one grid cell.
type SweepCellRow struct {
	Index             int
	ConfigID          string
	RelayRelay        float64
	ClientRelay       float64
	ProportionalFee   float64
	Repetitions       int
	FinalMeanBalance  float64
	FinalFailureRatio float64
}

// sortRuns sorts runs by (config_id, repetition, run_id).
func sortRuns(rows []RunRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ConfigID != rows[j].ConfigID {
			return rows[i].ConfigID < rows[j].ConfigID
		}
		if rows[i].Repetition != rows[j].Repetition {
			return rows[i].Repetition < rows[j].Repetition
		}
		return rows[i].RunID < rows[j].RunID
	})
}
