package reporting

import (
	"fmt"
	"strings"

	"ln-relay-lab/internal/domain"
)

// RenderRunsCSV renders run rows as CSV string.
func RenderRunsCSV(rows []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,config_id,sweep_id,repetition,liquidity,values,seed,transactions,succeeded,failed,failure_ratio,")
	sb.WriteString("initial_mean_balance,final_mean_balance,final_net_profit_mean,mean_absolute_error,")
	sb.WriteString("max_drawdown,value_median\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%s,%s,%d,%d,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			r.RunID,
			r.ConfigID,
			r.SweepID,
			r.Repetition,
			r.Liquidity,
			r.Values,
			r.Seed,
			r.Transactions,
			r.Succeeded,
			r.Failed,
			r.FailureRatio,
			r.InitialMeanBalance,
			r.FinalMeanBalance,
			r.FinalNetProfitMean,
			r.MeanAbsoluteError,
			r.MaxDrawdown,
			r.ValueMedian,
		))
	}

	return sb.String()
}

// RenderSweepCSV renders sweep cells as CSV string, one row per cell.
func RenderSweepCSV(rows []SweepCellRow) string {
	var sb strings.Builder

	sb.WriteString("index,config_id,r2r_balance,r2c_balance,proportional_fee,repetitions,final_mean_balance,final_failure_ratio\n")
	for _, c := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%g,%g,%g,%d,%.6f,%.6f\n",
			c.Index,
			c.ConfigID,
			c.RelayRelay,
			c.ClientRelay,
			c.ProportionalFee,
			c.Repetitions,
			c.FinalMeanBalance,
			c.FinalFailureRatio,
		))
	}

	return sb.String()
}

// RenderSeriesCSV renders the time series of one run.
func RenderSeriesCSV(points []*domain.SeriesPoint) string {
	var sb strings.Builder

	sb.WriteString("index,value,succeeded,mean_balance,net_profit_mean,failure_ratio,expected\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%d,%.6f,%t,%.6f,%.6f,%.6f,%.6f\n",
			p.Index,
			p.Value,
			p.Succeeded,
			p.MeanBalance,
			p.NetProfitMean,
			p.FailureRatio,
			p.Expected,
		))
	}

	return sb.String()
}

// RenderCellSeriesCSV renders the averaged series of one sweep cell, the
// layout of the per-configuration result files.
func RenderCellSeriesCSV(cell *domain.SweepCell) string {
	var sb strings.Builder

	sb.WriteString("index,mean_balance,failure_ratio\n")
	for i := range cell.MeanBalance {
		fr := 0.0
		if i < len(cell.FailureRatio) {
			fr = cell.FailureRatio[i]
		}
		sb.WriteString(fmt.Sprintf("%d,%.6f,%.6f\n", i, cell.MeanBalance[i], fr))
	}

	return sb.String()
}
