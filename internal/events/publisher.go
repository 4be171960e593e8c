// Package events publishes run lifecycle events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing run events.
type Publisher interface {
	// PublishRunCompleted publishes a run-completed event to the subject
	// "runs.{config_id}".
	PublishRunCompleted(ctx context.Context, event *RunCompletedEvent) error

	// Close closes the connection to NATS.
	Close() error
}

const (
	// StreamName is the name of the JetStream stream for run events.
	StreamName = "RUNS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "runs.*"

	// StreamRetention is how long messages are retained.
	StreamRetention = 30 * 24 * time.Hour
)

// ErrInvalidEvent is returned for events that cannot be routed.
var ErrInvalidEvent = errors.New("invalid run event")

// Subject returns the subject a run of configID is published to.
func Subject(configID string) string {
	return "runs." + configID
}

// JetStreamPublisher publishes run events to NATS JetStream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// Compile-time interface check.
var _ Publisher = (*JetStreamPublisher)(nil)

// NewPublisher connects to NATS and ensures the RUNS stream exists.
func NewPublisher(ctx context.Context, natsURL string, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("lnsim-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, logger: logger}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	logger.Info("nats publisher initialized", "url", natsURL, "stream", StreamName)
	return p, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stream, err := p.js.Stream(ctx, StreamName)
	if err == nil {
		if info, err := stream.Info(ctx); err == nil {
			p.logger.Debug("jetstream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("lookup stream: %w", err)
	}

	p.logger.Info("creating jetstream stream", "stream", StreamName)
	_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Completed payment-channel simulation runs",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}

// PublishRunCompleted publishes a single run-completed event.
func (p *JetStreamPublisher) PublishRunCompleted(ctx context.Context, event *RunCompletedEvent) error {
	if event == nil || event.ConfigID == "" {
		return ErrInvalidEvent
	}
	subject := Subject(event.ConfigID)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}

	// The run id doubles as the JetStream dedup key.
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.RunID)); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}

	p.logger.Debug("published run event", "subject", subject, "run_id", event.RunID)
	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("nats publisher closed")
	}
	return nil
}
