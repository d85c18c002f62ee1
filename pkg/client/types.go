package client

import "time"

// ProbeResult mirrors the server's probe observation payload.
type ProbeResult struct {
	State     string    `json:"state"`
	Code      int       `json:"code,omitempty"`
	Caveat    bool      `json:"caveat,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// ServiceStatus is one row of a stack status snapshot.
type ServiceStatus struct {
	Name      string      `json:"name"`
	Container string      `json:"container"`
	Result    ProbeResult `json:"result"`
	Mandatory bool        `json:"mandatory"`
}

// StackStatus is the stack-wide snapshot returned by /status.
type StackStatus struct {
	TakenAt time.Time       `json:"taken_at"`
	Entries []ServiceStatus `json:"entries"`
}

// Get returns the entry for name, if present.
func (s StackStatus) Get(name string) (ServiceStatus, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return ServiceStatus{}, false
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
