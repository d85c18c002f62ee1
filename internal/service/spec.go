package service

import (
	"time"

	"github.com/varekai/stackup/internal/probe"
)

// ProbeConfig is the parseable form of a readiness probe.
type ProbeConfig struct {
	Type          string `json:"type" mapstructure:"type"`                     // runtime | http | exec; empty means runtime
	URL           string `json:"url,omitempty" mapstructure:"url"`             // http
	ExpectStatus  int    `json:"expect_status,omitempty" mapstructure:"expect_status"`
	AllowedStatus []int  `json:"allowed_status,omitempty" mapstructure:"allowed_status"`
	Command       string `json:"command,omitempty" mapstructure:"command"` // exec
}

// Spec describes one managed service.
type Spec struct {
	Name         string        `json:"name" mapstructure:"name"`
	Container    string        `json:"container" mapstructure:"container"` // container name; defaults to Name
	DependsOn    []string      `json:"depends_on" mapstructure:"depends_on"`
	Probe        ProbeConfig   `json:"probe" mapstructure:"probe"`
	StartTimeout time.Duration `json:"start_timeout" mapstructure:"start_timeout"` // default 60s
	PollInterval time.Duration `json:"poll_interval" mapstructure:"poll_interval"` // default 2s
	Mandatory    bool          `json:"mandatory" mapstructure:"mandatory"`
}

const (
	DefaultStartTimeout = 60 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// ContainerName returns the runtime handle for the service.
func (s Spec) ContainerName() string {
	if s.Container != "" {
		return s.Container
	}
	return s.Name
}

// Timeout returns the effective start timeout.
func (s Spec) Timeout() time.Duration {
	if s.StartTimeout > 0 {
		return s.StartTimeout
	}
	return DefaultStartTimeout
}

// Interval returns the effective poll interval.
func (s Spec) Interval() time.Duration {
	if s.PollInterval > 0 {
		return s.PollInterval
	}
	return DefaultPollInterval
}

// BuildProbe constructs the configured probe. insp is consulted for runtime
// probes and for services that define no probe at all.
func (s Spec) BuildProbe(insp probe.Inspector) probe.Probe {
	switch s.Probe.Type {
	case "http":
		return probe.HTTPProbe{
			URL:           s.Probe.URL,
			ExpectStatus:  s.Probe.ExpectStatus,
			AllowedStatus: s.Probe.AllowedStatus,
		}
	case "exec":
		return probe.ExecProbe{Command: s.Probe.Command}
	default:
		return probe.RuntimeProbe{Container: s.ContainerName(), Inspector: insp}
	}
}
