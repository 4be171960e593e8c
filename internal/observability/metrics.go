// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/lightning"
)

// Transaction outcome label values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Metrics holds all Prometheus metrics for the application.
// It observes runs as an experiment observer.
type Metrics struct {
	// Simulation metrics
	TransactionsTotal *prometheus.CounterVec
	TransactionValue  prometheus.Histogram
	RelayMeanBalance  prometheus.Gauge
	FailureRatio      prometheus.Gauge

	// Run metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	MeanAbsoluteError prometheus.Gauge

	// Sweep metrics
	SweepCellsTotal *prometheus.CounterVec

	// Reporting metrics
	ReportsGenerated prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg, or with the
// default registerer when reg is nil.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "ln_relay_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Simulation metrics
		TransactionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "transactions_total",
			Help:      "Total number of simulated transactions by outcome",
		}, []string{"outcome"}),
		TransactionValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "transaction_value",
			Help:      "Net value requested by simulated transactions",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
		}),
		RelayMeanBalance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "relay_mean_balance",
			Help:      "Relay mean total balance of the most recent point",
		}),
		FailureRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "failure_ratio",
			Help:      "Failure ratio of the most recent point",
		}),

		// Run metrics
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "completed_total",
			Help:      "Total number of completed runs by liquidity regime",
		}, []string{"liquidity"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Run execution duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		MeanAbsoluteError: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "mean_absolute_error",
			Help:      "Mean absolute error against the closed form of the most recent run",
		}),

		// Sweep metrics
		SweepCellsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "cells_total",
			Help:      "Total number of sweep cells by origin",
		}, []string{"origin"}),

		// Reporting metrics
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Health metrics
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last completed run",
		}),
	}
}

// OnPoint records one series point. The initial point only sets gauges.
func (m *Metrics) OnPoint(p domain.SeriesPoint) {
	m.RelayMeanBalance.Set(p.MeanBalance)
	m.FailureRatio.Set(p.FailureRatio)
	if p.Index == 0 {
		return
	}

	outcome := OutcomeFailed
	if p.Succeeded {
		outcome = OutcomeSucceeded
	}
	m.TransactionsTotal.WithLabelValues(outcome).Inc()
	m.TransactionValue.Observe(p.Value)
}

// OnRunCompleted records a finished run.
func (m *Metrics) OnRunCompleted(s domain.RunSummary) {
	m.RunsTotal.WithLabelValues(lightning.PolicyFor(s.Config.IsLiquidityAssumed).Name()).Inc()
	m.RunDuration.Observe(float64(s.CompletedAt-s.StartedAt) / 1000)
	m.MeanAbsoluteError.Set(s.MeanAbsoluteError)
	m.LastSuccessfulRun.Set(float64(s.CompletedAt) / 1000)
}

// RecordSweep records the cells of a finished sweep.
func (m *Metrics) RecordSweep(computed, resumed int) {
	m.SweepCellsTotal.WithLabelValues("computed").Add(float64(computed))
	m.SweepCellsTotal.WithLabelValues("resumed").Add(float64(resumed))
}

// RecordReport counts a generated report.
func (m *Metrics) RecordReport() {
	m.ReportsGenerated.Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler serving gatherer.
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)
