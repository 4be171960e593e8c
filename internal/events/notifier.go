package events

import (
	"context"
	"log/slog"
	"time"

	"ln-relay-lab/internal/domain"
)

// DefaultPublishTimeout bounds one publish from the run loop.
const DefaultPublishTimeout = 5 * time.Second

// Notifier is a run observer that publishes each completed run.
// Publish failures are logged and never fail the run.
type Notifier struct {
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger
}

// NewNotifier creates a Notifier publishing through p.
func NewNotifier(p Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{publisher: p, timeout: DefaultPublishTimeout, logger: logger}
}

// WithTimeout sets the per-publish timeout.
func (n *Notifier) WithTimeout(d time.Duration) *Notifier {
	n.timeout = d
	return n
}

// OnPoint is a no-op; only completed runs are published.
func (n *Notifier) OnPoint(domain.SeriesPoint) {}

// OnRunCompleted publishes the run summary.
func (n *Notifier) OnRunCompleted(s domain.RunSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.publisher.PublishRunCompleted(ctx, FromRunSummary(s)); err != nil {
		n.logger.Error("failed to publish run event",
			"run_id", s.RunID,
			"config_id", s.ConfigID,
			"error", err,
		)
	}
}
