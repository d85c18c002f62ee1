package service

import (
	"fmt"
	"time"

	"github.com/varekai/stackup/internal/probe"
)

// Registry is the validated, immutable set of services for one run.
// Validation happens once at construction; lookups after that cannot fail
// on malformed input.
type Registry struct {
	specs  []Spec
	byName map[string]int
}

// NewRegistry validates the declared specs and builds the registry.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(specs))}
	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("service at position %d has no name", i)
		}
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate service %q", s.Name)
		}
		if s.StartTimeout < 0 || s.PollInterval < 0 {
			return nil, fmt.Errorf("service %q: negative timeout or interval", s.Name)
		}
		switch s.Probe.Type {
		case "", "runtime":
		case "http":
			if s.Probe.URL == "" {
				return nil, fmt.Errorf("service %q: http probe requires url", s.Name)
			}
		case "exec":
			if s.Probe.Command == "" {
				return nil, fmt.Errorf("service %q: exec probe requires command", s.Name)
			}
		default:
			return nil, fmt.Errorf("service %q: unknown probe type %q", s.Name, s.Probe.Type)
		}
		r.byName[s.Name] = i
		r.specs = append(r.specs, s)
	}
	for _, s := range r.specs {
		for _, dep := range s.DependsOn {
			if _, ok := r.byName[dep]; !ok {
				return nil, fmt.Errorf("service %q depends on undeclared service %q", s.Name, dep)
			}
		}
	}
	return r, nil
}

// Get returns the spec for name.
func (r *Registry) Get(name string) (Spec, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}

// All returns the specs in declaration order.
func (r *Registry) All() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Len returns the number of registered services.
func (r *Registry) Len() int { return len(r.specs) }

// Entry is one row of a stack status snapshot.
type Entry struct {
	Name      string       `json:"name"`
	Container string       `json:"container"`
	Result    probe.Result `json:"result"`
	Mandatory bool         `json:"mandatory"`
}

// StackStatus maps service name to its last known probe result.
type StackStatus struct {
	TakenAt time.Time `json:"taken_at"`
	Entries []Entry   `json:"entries"`
}

// Get returns the entry for name, if present.
func (s StackStatus) Get(name string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
