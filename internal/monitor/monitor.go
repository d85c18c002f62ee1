// Package monitor provides an on-demand snapshot of every registered
// service's health plus log-tail and restart delegation. It never retries
// or waits; bounded waiting lives in internal/wait.
package monitor

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/varekai/stackup/internal/probe"
	"github.com/varekai/stackup/internal/runtime"
	"github.com/varekai/stackup/internal/service"
)

// Monitor aggregates probe results across the registry.
type Monitor struct {
	reg *service.Registry
	rt  runtime.Client
}

func New(reg *service.Registry, rt runtime.Client) *Monitor {
	return &Monitor{reg: reg, rt: rt}
}

// Status takes one non-blocking pass over every registered service and
// returns the assembled table. Each service is probed exactly once;
// services are probed concurrently so a slow endpoint does not serialize
// the snapshot.
func (m *Monitor) Status(ctx context.Context) service.StackStatus {
	specs := m.reg.All()
	entries := make([]service.Entry, len(specs))
	var wg sync.WaitGroup
	for i, s := range specs {
		wg.Add(1)
		go func(i int, s service.Spec) {
			defer wg.Done()
			entries[i] = m.probeOne(ctx, s)
		}(i, s)
	}
	wg.Wait()
	return service.StackStatus{TakenAt: time.Now(), Entries: entries}
}

func (m *Monitor) probeOne(ctx context.Context, s service.Spec) service.Entry {
	res, err := s.BuildProbe(m.rt).Check(ctx)
	if err != nil {
		res = probe.Result{State: probe.StateUnknown, Detail: err.Error(), CheckedAt: time.Now()}
	}
	return service.Entry{
		Name:      s.Name,
		Container: s.ContainerName(),
		Result:    res,
		Mandatory: s.Mandatory,
	}
}

// Logs streams the service's recent output. Pure delegation to the runtime;
// the stream is returned unmodified.
func (m *Monitor) Logs(ctx context.Context, name string, tail int) (io.ReadCloser, error) {
	s, ok := m.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown service %q", name)
	}
	return m.rt.Logs(ctx, s.ContainerName(), tail)
}

// Restart restarts the service's container. Pure delegation; no retries.
func (m *Monitor) Restart(ctx context.Context, name string) error {
	s, ok := m.reg.Get(name)
	if !ok {
		return fmt.Errorf("unknown service %q", name)
	}
	return m.rt.Restart(ctx, s.ContainerName())
}
