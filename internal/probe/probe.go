package probe

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// State is the readiness classification of a single service.
type State int

const (
	StateUnknown State = iota
	StateStarting
	StateHealthy
	StateUnhealthy
	StateStopped
	StateNotFound
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateHealthy:
		return "healthy"
	case StateUnhealthy:
		return "unhealthy"
	case StateStopped:
		return "stopped"
	case StateNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// StateNames lists every state by name, in enum order.
func StateNames() []string {
	names := make([]string, 0, int(StateNotFound)+1)
	for s := StateUnknown; s <= StateNotFound; s++ {
		names = append(names, s.String())
	}
	return names
}

// MarshalJSON renders the state by name so status payloads stay readable.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *State) UnmarshalJSON(b []byte) error {
	name := strings.Trim(string(b), `"`)
	for st := StateUnknown; st <= StateNotFound; st++ {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown probe state %q", name)
}

// Result is one observation produced by a probe.
// Code carries the HTTP status (or process exit code) when the probe has one.
// Caveat marks a reading that was reclassified to healthy via the service's
// allowed-status list; it is carried through for display, never dropped.
type Result struct {
	State     State     `json:"state"`
	Code      int       `json:"code,omitempty"`
	Caveat    bool      `json:"caveat,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Probe evaluates the current readiness of one service.
// Implementations must be safe for concurrent use. A returned error means the
// probe itself could not run; the caller decides whether that is transient.
type Probe interface {
	Check(ctx context.Context) (Result, error)
	Describe() string
}
