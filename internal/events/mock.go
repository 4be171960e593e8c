package events

import (
	"context"
	"sync"
)

// MockPublisher is a Publisher that records events in memory.
type MockPublisher struct {
	mu           sync.RWMutex
	published    []*RunCompletedEvent
	publishError error
	closed       bool
}

// Compile-time interface check.
var _ Publisher = (*MockPublisher)(nil)

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishRunCompleted records the event and returns any configured error.
func (m *MockPublisher) PublishRunCompleted(_ context.Context, event *RunCompletedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}
	if event == nil || event.ConfigID == "" {
		return ErrInvalidEvent
	}
	m.published = append(m.published, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetPublishError makes subsequent publishes fail with err.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// Published returns a copy of the recorded events.
func (m *MockPublisher) Published() []*RunCompletedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*RunCompletedEvent, len(m.published))
	copy(out, m.published)
	return out
}

// PublishedForConfig returns the recorded events of one config.
func (m *MockPublisher) PublishedForConfig(configID string) []*RunCompletedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*RunCompletedEvent
	for _, e := range m.published {
		if e.ConfigID == configID {
			out = append(out, e)
		}
	}
	return out
}

// IsClosed reports whether Close was called.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Reset clears recorded events and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
	m.publishError = nil
	m.closed = false
}
