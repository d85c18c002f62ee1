package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/varekai/stackup/internal/bootstrap"
	"github.com/varekai/stackup/internal/graph"
	"github.com/varekai/stackup/internal/history"
	"github.com/varekai/stackup/internal/metrics"
	"github.com/varekai/stackup/internal/probe"
	"github.com/varekai/stackup/internal/runtime"
	"github.com/varekai/stackup/internal/service"
	"github.com/varekai/stackup/internal/wait"
)

// ServiceError reports a mandatory service that failed its bring-up wait.
type ServiceError struct {
	Service string
	Wave    int
	Outcome wait.Outcome
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("service %s: %s after %s in wave %d",
		e.Service, e.Outcome.Terminal, e.Outcome.Elapsed, e.Wave)
	if e.Outcome.Last.Detail != "" {
		msg += " (" + e.Outcome.Last.Detail + ")"
	}
	return msg
}

func (e *ServiceError) Unwrap() error { return e.Outcome.Err }

// ServiceReport is the outcome of one service within a bring-up run.
type ServiceReport struct {
	Name    string
	Wave    int
	Skipped bool // already healthy before this run touched it
	Outcome wait.Outcome
}

// WaveReport collects the outcomes of one startup wave.
type WaveReport struct {
	Index    int
	Duration time.Duration
	Services []ServiceReport
}

// Report is the full record of a bring-up run. Err is the first fatal
// failure, nil on full success. Aborted lists services that were never
// attempted because an earlier wave failed; nothing already started is
// rolled back.
type Report struct {
	Waves   []WaveReport
	Aborted []string
	Err     error
}

// Orchestrator drives a stack from "whatever state it is in" to
// "every service healthy", one dependency wave at a time.
type Orchestrator struct {
	reg   *service.Registry
	rt    runtime.Client
	rec   *bootstrap.Reconciler
	clock clockwork.Clock
	log   *slog.Logger
	sink  history.Sink
}

type Option func(*Orchestrator)

// WithBootstrap attaches the database reconciler; it runs after the runtime
// ping and before the first wave.
func WithBootstrap(rec *bootstrap.Reconciler) Option {
	return func(o *Orchestrator) { o.rec = rec }
}

// WithClock substitutes the clock used for wait policies.
func WithClock(clk clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = clk }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithHistory attaches a sink receiving wave and service events.
func WithHistory(s history.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

func New(reg *service.Registry, rt runtime.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:   reg,
		rt:    rt,
		clock: clockwork.NewRealClock(),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan computes the startup waves without touching the runtime. The same
// plan is used by Up; a cycle or an unknown dependency fails here and no
// partial plan is ever produced.
func (o *Orchestrator) Plan() ([][]string, error) {
	g := graph.New()
	for _, s := range o.reg.All() {
		if err := g.Add(graph.Node{Name: s.Name, DependsOn: s.DependsOn}); err != nil {
			return nil, err
		}
	}
	return g.Waves()
}

// Up performs one bring-up pass: plan, ping the runtime, reconcile the
// database, then walk the waves. Services already healthy are left alone,
// so re-running Up against a partially started stack converges instead of
// restarting anything.
func (o *Orchestrator) Up(ctx context.Context) Report {
	var rep Report

	plan, err := o.Plan()
	if err != nil {
		rep.Err = err
		metrics.ObserveBringup("plan_error")
		return rep
	}

	if err := o.rt.Ping(ctx); err != nil {
		rep.Err = err
		rep.Aborted = flatten(plan)
		metrics.ObserveBringup("runtime_unavailable")
		return rep
	}

	if o.rec != nil {
		o.log.Info("reconciling database bootstrap")
		if err := o.rec.Run(ctx); err != nil {
			rep.Err = err
			rep.Aborted = flatten(plan)
			metrics.ObserveBringup("bootstrap_error")
			return rep
		}
	}

	for i, names := range plan {
		wr, fatal := o.runWave(ctx, i, names)
		rep.Waves = append(rep.Waves, wr)
		if fatal != nil {
			rep.Err = fatal
			rep.Aborted = flatten(plan[i+1:])
			o.log.Error("wave failed, aborting remaining waves",
				"wave", i, "error", fatal, "aborted", len(rep.Aborted))
			metrics.ObserveBringup("failure")
			return rep
		}
	}
	metrics.ObserveBringup("success")
	return rep
}

// runWave brings up one wave: a skip/start pass in declaration order, then
// all waits in parallel. The wave's waits share the wall clock, so the
// wave lasts as long as its slowest member, never the sum.
func (o *Orchestrator) runWave(ctx context.Context, idx int, names []string) (WaveReport, error) {
	start := o.clock.Now()
	wr := WaveReport{Index: idx, Services: make([]ServiceReport, len(names))}

	type pending struct {
		i    int
		spec service.Spec
		pr   probe.Probe
	}
	var toWait []pending

	for i, name := range names {
		spec, _ := o.reg.Get(name)
		pr := observedProbe{name: name, inner: spec.BuildProbe(o.rt)}

		if res, err := pr.Check(ctx); err == nil && res.State == probe.StateHealthy {
			o.log.Info("service already healthy, skipping", "service", name, "wave", idx)
			wr.Services[i] = ServiceReport{
				Name: name, Wave: idx, Skipped: true,
				Outcome: wait.Outcome{Terminal: wait.TerminalHealthy, Last: res, Polls: 1},
			}
			o.recordService(ctx, wr.Services[i])
			continue
		}

		o.log.Info("starting service", "service", name, "container", spec.ContainerName(), "wave", idx)
		if err := o.rt.Start(ctx, spec.ContainerName()); err != nil {
			out := wait.Outcome{Terminal: wait.TerminalUnhealthy, Err: err}
			wr.Services[i] = ServiceReport{Name: name, Wave: idx, Outcome: out}
			continue
		}
		toWait = append(toWait, pending{i: i, spec: spec, pr: pr})
	}

	var wg sync.WaitGroup
	for _, p := range toWait {
		wg.Add(1)
		go func(p pending) {
			defer wg.Done()
			policy := wait.Policy{
				Interval: p.spec.Interval(),
				Timeout:  p.spec.Timeout(),
				Clock:    o.clock,
			}
			out := policy.Wait(ctx, p.pr)
			wr.Services[p.i] = ServiceReport{Name: p.spec.Name, Wave: idx, Outcome: out}
		}(p)
	}
	wg.Wait()

	wr.Duration = o.clock.Since(start)
	metrics.ObserveWave(strconv.Itoa(idx), wr.Duration)
	o.recordWave(ctx, wr)

	var fatal error
	for _, sr := range wr.Services {
		if sr.Skipped {
			continue
		}
		o.recordService(ctx, sr)
		metrics.SetServiceState(sr.Name, sr.Outcome.Last.State.String(), probe.StateNames())
		switch sr.Outcome.Terminal {
		case wait.TerminalHealthy:
			o.log.Info("service healthy", "service", sr.Name,
				"polls", sr.Outcome.Polls, "elapsed", sr.Outcome.Elapsed,
				"caveat", sr.Outcome.Last.Caveat)
		case wait.TerminalCanceled:
			if fatal == nil {
				fatal = sr.Outcome.Err
			}
		default:
			spec, _ := o.reg.Get(sr.Name)
			if spec.Mandatory {
				if fatal == nil {
					fatal = &ServiceError{Service: sr.Name, Wave: idx, Outcome: sr.Outcome}
				}
			} else {
				o.log.Warn("optional service failed, continuing",
					"service", sr.Name, "terminal", sr.Outcome.Terminal.String(),
					"elapsed", sr.Outcome.Elapsed)
			}
		}
	}
	return wr, fatal
}

func (o *Orchestrator) recordService(ctx context.Context, sr ServiceReport) {
	if o.sink == nil {
		return
	}
	e := history.Event{
		Type:       history.EventServiceState,
		OccurredAt: time.Now().UTC(),
		Service:    sr.Name,
		State:      sr.Outcome.Last.State.String(),
		Wave:       sr.Wave,
		Caveat:     sr.Outcome.Last.Caveat,
		Detail:     sr.Outcome.Last.Detail,
	}
	if sr.Outcome.Err != nil {
		e.Error = sr.Outcome.Err.Error()
	}
	if err := o.sink.Send(ctx, e); err != nil {
		o.log.Warn("history sink send failed", "error", err)
	}
}

func (o *Orchestrator) recordWave(ctx context.Context, wr WaveReport) {
	if o.sink == nil {
		return
	}
	e := history.Event{
		Type:       history.EventWave,
		OccurredAt: time.Now().UTC(),
		Wave:       wr.Index,
		Detail:     fmt.Sprintf("%d services in %s", len(wr.Services), wr.Duration),
	}
	if err := o.sink.Send(ctx, e); err != nil {
		o.log.Warn("history sink send failed", "error", err)
	}
}

func flatten(waves [][]string) []string {
	var out []string
	for _, w := range waves {
		out = append(out, w...)
	}
	return out
}

// observedProbe counts polls into the metrics registry.
type observedProbe struct {
	name  string
	inner probe.Probe
}

func (p observedProbe) Check(ctx context.Context) (probe.Result, error) {
	res, err := p.inner.Check(ctx)
	if err == nil {
		metrics.ObservePoll(p.name, res.State.String())
	}
	return res, err
}

func (p observedProbe) Describe() string { return p.inner.Describe() }
