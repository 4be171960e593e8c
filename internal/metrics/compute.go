package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"ln-relay-lab/internal/domain"
)

// ErrLengthMismatch is returned when series of different lengths are combined.
var ErrLengthMismatch = errors.New("series length mismatch")

// AverageSeries averages equally long series element-wise.
// Returns nil for no input.
func AverageSeries(series [][]float64) ([]float64, error) {
	if len(series) == 0 {
		return nil, nil
	}

	n := len(series[0])
	out := make([]float64, n)
	for i, s := range series {
		if len(s) != n {
			return nil, fmt.Errorf("%w: series %d has %d points, want %d", ErrLengthMismatch, i, len(s), n)
		}
		for j, v := range s {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(series))
	}
	return out, nil
}

// MeanAbsoluteError returns mean |expected[i] - simulated[i]| over the
// common prefix of both series.
func MeanAbsoluteError(expected, simulated []float64) float64 {
	n := min(len(expected), len(simulated))
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Abs(expected[i] - simulated[i])
	}
	return sum / float64(n)
}

// computeRunStats calculates run statistics from its series.
// Points must be ordered by Index ASC; point 0 is the initial state.
func computeRunStats(runID string, points []*domain.SeriesPoint) *domain.RunStats {
	stats := &domain.RunStats{RunID: runID, Points: len(points)}
	if len(points) == 0 {
		return stats
	}

	balances := make([]float64, len(points))
	expected := make([]float64, len(points))
	for i, p := range points {
		balances[i] = p.MeanBalance
		expected[i] = p.Expected
	}

	// Transactions start at index 1
	values := make([]float64, 0, len(points)-1)
	for _, p := range points[1:] {
		values = append(values, p.Value)
		if p.Succeeded {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}

	sortedValues := make([]float64, len(values))
	copy(sortedValues, values)
	sort.Float64s(sortedValues)

	last := points[len(points)-1]
	stats.FinalFailureRatio = last.FailureRatio
	stats.MeanBalanceStart = balances[0]
	stats.MeanBalanceEnd = balances[len(balances)-1]
	stats.MeanBalanceMin, stats.MeanBalanceMax = computeMinMax(balances)
	stats.MaxDrawdown = computeMaxDrawdown(balances)

	valueMean := computeMean(values)
	stats.ValueMean = valueMean
	stats.ValueMedian = computePercentile(sortedValues, 0.50)
	stats.ValueP10 = computePercentile(sortedValues, 0.10)
	stats.ValueP90 = computePercentile(sortedValues, 0.90)
	stats.ValueStddev = computeStddev(values, valueMean)

	stats.MeanAbsoluteError = MeanAbsoluteError(expected, balances)
	return stats
}

// computeConfigAggregate calculates cross-run statistics.
// Runs are sorted by RunID before computing so the result is order independent.
func computeConfigAggregate(configID string, runs []*domain.RunSummary) *domain.ConfigAggregate {
	agg := &domain.ConfigAggregate{ConfigID: configID, Runs: len(runs)}
	if len(runs) == 0 {
		return agg
	}

	sorted := make([]*domain.RunSummary, len(runs))
	copy(sorted, runs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RunID < sorted[j].RunID })
	agg.Config = sorted[0].Config

	finals := make([]float64, len(sorted))
	ratios := make([]float64, len(sorted))
	for i, r := range sorted {
		finals[i] = r.FinalMeanBalance
		ratios[i] = r.FailureRatio
		if r.FinalNetProfitMean > 0 {
			agg.ProfitableRuns++
		}
	}

	sortedFinals := make([]float64, len(finals))
	copy(sortedFinals, finals)
	sort.Float64s(sortedFinals)

	finalMean := computeMean(finals)
	agg.FinalMeanBalanceMean = finalMean
	agg.FinalMeanBalanceMedian = computePercentile(sortedFinals, 0.50)
	agg.FinalMeanBalanceP10 = computePercentile(sortedFinals, 0.10)
	agg.FinalMeanBalanceP90 = computePercentile(sortedFinals, 0.90)
	agg.FinalMeanBalanceStddev = computeStddev(finals, finalMean)

	ratioMean := computeMean(ratios)
	agg.FailureRatioMean = ratioMean
	agg.FailureRatioStddev = computeStddev(ratios, ratioMean)

	agg.ProfitableRate = computeRate(agg.ProfitableRuns, len(sorted))
	return agg
}

// computeRate calculates part / total.
func computeRate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

func computeMinMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// computeMaxDrawdown calculates the worst peak-to-trough drop of a level
// series (not cumulative outcomes). Values must be in chronological order.
func computeMaxDrawdown(levels []float64) float64 {
	if len(levels) == 0 {
		return 0
	}

	peak := levels[0]
	maxDrawdown := 0.0
	for _, v := range levels {
		if v > peak {
			peak = v
		}
		if drawdown := peak - v; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}
