package stackup

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/varekai/stackup/internal/bootstrap"
	cfg "github.com/varekai/stackup/internal/config"
	"github.com/varekai/stackup/internal/history"
	"github.com/varekai/stackup/internal/history/factory"
	"github.com/varekai/stackup/internal/metrics"
	"github.com/varekai/stackup/internal/monitor"
	"github.com/varekai/stackup/internal/orchestrator"
	"github.com/varekai/stackup/internal/runtime"
	iapi "github.com/varekai/stackup/internal/server"
	"github.com/varekai/stackup/internal/service"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = service.Spec

type ProbeConfig = service.ProbeConfig

type Entry = service.Entry

type StackStatus = service.StackStatus

type Config = cfg.Config

type HistoryConfig = cfg.HistoryConfig

type HistorySink = history.Sink

type Report = orchestrator.Report

type Runtime = runtime.Client

// Stack is a thin facade over the internal orchestrator, monitor, and
// reconciler. It provides a stable public API for embedding.
type Stack struct {
	reg  *service.Registry
	rt   runtime.Client
	rec  *bootstrap.Reconciler
	orch *orchestrator.Orchestrator
	mon  *monitor.Monitor
	sink history.Sink
}

type Option func(*Stack)

// WithRuntime substitutes the container runtime; the default talks to the
// local docker daemon.
func WithRuntime(rt Runtime) Option { return func(s *Stack) { s.rt = rt } }

// WithHistorySink overrides the sink built from the config's history section.
func WithHistorySink(sink HistorySink) Option { return func(s *Stack) { s.sink = sink } }

// New validates the configuration and assembles a Stack. The runtime
// daemon is not contacted here; that happens on Up/Status.
func New(c *Config, opts ...Option) (*Stack, error) {
	if err := c.MustValidate(); err != nil {
		return nil, err
	}
	reg, err := service.NewRegistry(c.Services)
	if err != nil {
		return nil, err
	}
	s := &Stack{reg: reg}
	for _, opt := range opts {
		opt(s)
	}
	if s.rt == nil {
		rt, err := runtime.NewDocker()
		if err != nil {
			return nil, err
		}
		s.rt = rt
	}
	if s.sink == nil {
		sink, err := factory.NewSink(c.History)
		if err != nil {
			return nil, err
		}
		s.sink = sink
	}
	s.rec = bootstrap.New(c.ToBootstrap(),
		bootstrap.WithStepObserver(func(step string, elapsed time.Duration, err error) {
			metrics.ObserveBootstrapStep(step, elapsed, err)
			if s.sink == nil {
				return
			}
			e := history.Event{
				Type:       history.EventBootstrapStep,
				OccurredAt: time.Now().UTC(),
				Detail:     step,
			}
			if err != nil {
				e.Error = err.Error()
			}
			_ = s.sink.Send(context.Background(), e)
		}))
	oopts := []orchestrator.Option{orchestrator.WithBootstrap(s.rec)}
	if s.sink != nil {
		oopts = append(oopts, orchestrator.WithHistory(s.sink))
	}
	s.orch = orchestrator.New(reg, s.rt, oopts...)
	s.mon = monitor.New(reg, s.rt)
	return s, nil
}

// LoadConfig reads and validates nothing beyond TOML syntax; call
// Config.MustValidate (or New) before acting on it.
func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// Plan returns the startup waves without touching the runtime.
func (s *Stack) Plan() ([][]string, error) { return s.orch.Plan() }

// Up brings the stack to healthy, one dependency wave at a time.
func (s *Stack) Up(ctx context.Context) Report { return s.orch.Up(ctx) }

// Status takes one non-blocking probe pass over every service.
func (s *Stack) Status(ctx context.Context) StackStatus { return s.mon.Status(ctx) }

// Logs streams recent output of one service's container.
func (s *Stack) Logs(ctx context.Context, name string, tail int) (io.ReadCloser, error) {
	return s.mon.Logs(ctx, name, tail)
}

// Restart restarts one service's container.
func (s *Stack) Restart(ctx context.Context, name string) error {
	return s.mon.Restart(ctx, name)
}

// Bootstrap re-runs the idempotent database bring-up on its own.
func (s *Stack) Bootstrap(ctx context.Context) error { return s.rec.Run(ctx) }

// Repair destroys the managed database state and rebuilds it from scratch.
// Destructive; sessions on the managed database are terminated.
func (s *Stack) Repair(ctx context.Context) error { return s.rec.Repair(ctx) }

// Close releases the history sink.
func (s *Stack) Close() error {
	if s.sink != nil {
		return s.sink.Close()
	}
	return nil
}

// NewHTTPServer starts the control API on addr using this stack.
func (s *Stack) NewHTTPServer(addr, basePath string) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, s.mon, s.rec)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
