package history

import (
	"context"
	"time"
)

// EventType is the kind of bring-up event.
type EventType string

const (
	// EventServiceState records a service reaching a terminal wait state.
	EventServiceState EventType = "service_state"
	// EventBootstrapStep records one reconciliation step.
	EventBootstrapStep EventType = "bootstrap_step"
	// EventWave records a completed startup wave.
	EventWave EventType = "wave"
)

// Event is one record exported to external systems.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Service    string    `json:"service,omitempty"`
	State      string    `json:"state,omitempty"`
	Wave       int       `json:"wave"`
	Caveat     bool      `json:"caveat"`
	Detail     string    `json:"detail,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Sink is a destination for bring-up events (analytics/audit systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}

// Multi fans an event out to several sinks, best effort.
type Multi []Sink

func (m Multi) Send(ctx context.Context, e Event) error {
	var firstErr error
	for _, s := range m {
		if err := s.Send(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m Multi) Close() error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
