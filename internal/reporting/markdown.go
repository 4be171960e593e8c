package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Relay Economics Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d | Configs: %d\n\n", r.RunCount, r.ConfigCount))

	// Runs
	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Config | Liquidity | Values | Tx | Failed | FailureRatio | Initial | Final | NetProfit | MAE | MaxDD |\n")
		sb.WriteString("|-----|--------|-----------|--------|----|--------|--------------|---------|-------|-----------|-----|-------|\n")
		for _, run := range r.Runs {
			maxDD := "n/a"
			if run.HasSeries {
				maxDD = fmt.Sprintf("%.4f", run.MaxDrawdown)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %.6f | %s |\n",
				shortID(run.RunID), run.ConfigID, run.Liquidity, run.Values,
				run.Transactions, run.Failed, run.FailureRatio,
				run.InitialMeanBalance, run.FinalMeanBalance, run.FinalNetProfitMean,
				run.MeanAbsoluteError, maxDD))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Configs
	sb.WriteString("## Config Summary\n\n")
	if len(r.Configs) > 0 {
		sb.WriteString("| Config | Parameters | Runs | Final Mean | Median | P10 | P90 | Stddev | FailureRatio | Profitable |\n")
		sb.WriteString("|--------|------------|------|------------|--------|-----|-----|--------|--------------|------------|\n")
		for _, c := range r.Configs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.2f |\n",
				c.ConfigID, c.Description, c.Runs,
				c.FinalMeanBalance, c.FinalMedian, c.FinalP10, c.FinalP90, c.FinalStddev,
				c.FailureRatioMean, c.ProfitableRate))
		}
	} else {
		sb.WriteString("No config summary available.\n")
	}
	sb.WriteString("\n")

	// Sweep
	if r.Sweep != nil {
		sb.WriteString(fmt.Sprintf("## Sweep %s\n\n", r.Sweep.SweepID))
		if len(r.Sweep.Cells) > 0 {
			sb.WriteString("| # | Config | R2R | R2C | Fee | Reps | Final Mean | Final FailureRatio |\n")
			sb.WriteString("|---|--------|-----|-----|-----|------|------------|--------------------|\n")
			for _, c := range r.Sweep.Cells {
				sb.WriteString(fmt.Sprintf("| %d | %s | %g | %g | %g | %d | %.4f | %.4f |\n",
					c.Index, c.ConfigID, c.RelayRelay, c.ClientRelay, c.ProportionalFee,
					c.Repetitions, c.FinalMeanBalance, c.FinalFailureRatio))
			}
		} else {
			sb.WriteString("No sweep cells stored.\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
