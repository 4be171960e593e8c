package events

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/experiment"
)

var _ experiment.Observer = (*Notifier)(nil)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleSummary() domain.RunSummary {
	return domain.RunSummary{
		RunID:              "run-1",
		ConfigID:           "cfgA",
		Repetition:         2,
		Config:             domain.PresetConfigNoLiquidity,
		Seed:               42,
		Values:             "uniform[1,10)",
		TransactionsCount:  10,
		Succeeded:          7,
		Failed:             3,
		FailureRatio:       0.3,
		InitialMeanBalance: 380,
		FinalMeanBalance:   381.5,
		FinalNetProfitMean: -8.5,
		StartedAt:          1_700_000_000_000,
		CompletedAt:        1_700_000_002_500,
	}
}

func TestFromRunSummary(t *testing.T) {
	e := FromRunSummary(sampleSummary())

	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, "cfgA", e.ConfigID)
	assert.Equal(t, 2, e.Repetition)
	assert.Equal(t, "verified", e.Liquidity)
	assert.Equal(t, 20, e.Relays)
	assert.Equal(t, 3, e.Hops)
	assert.Equal(t, 0.3, e.FailureRatio)
	assert.Equal(t, 2500*time.Millisecond, e.CompletedAt.Sub(e.StartedAt))
	assert.Equal(t, time.UTC, e.StartedAt.Location())
	assert.False(t, e.PublishedAt.IsZero())
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "runs.cfgA", Subject("cfgA"))
}

func TestMockPublisher(t *testing.T) {
	m := NewMockPublisher()
	n := NewNotifier(m, quietLogger())

	s := sampleSummary()
	n.OnPoint(domain.SeriesPoint{Index: 1})
	n.OnRunCompleted(s)
	s.ConfigID = "cfgB"
	n.OnRunCompleted(s)

	require.Len(t, m.Published(), 2)
	assert.Len(t, m.PublishedForConfig("cfgA"), 1)
	assert.Len(t, m.PublishedForConfig("cfgB"), 1)

	m.SetPublishError(errors.New("nats down"))
	n.OnRunCompleted(s) // logged, not fatal
	assert.Len(t, m.Published(), 2)

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())

	m.Reset()
	assert.Empty(t, m.Published())
	assert.False(t, m.IsClosed())
}

func TestMockPublisher_InvalidEvent(t *testing.T) {
	m := NewMockPublisher()
	assert.ErrorIs(t, m.PublishRunCompleted(t.Context(), nil), ErrInvalidEvent)
	assert.ErrorIs(t, m.PublishRunCompleted(t.Context(), &RunCompletedEvent{RunID: "x"}), ErrInvalidEvent)
}
