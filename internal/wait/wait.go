package wait

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/varekai/stackup/internal/probe"
)

// Terminal classifies how a wait ended.
type Terminal int

const (
	TerminalHealthy Terminal = iota
	TerminalUnhealthy
	TerminalTimeout
	TerminalCanceled
)

func (t Terminal) String() string {
	switch t {
	case TerminalHealthy:
		return "healthy"
	case TerminalUnhealthy:
		return "unhealthy"
	case TerminalTimeout:
		return "timeout"
	default:
		return "canceled"
	}
}

// Outcome is the result of one bounded wait.
type Outcome struct {
	Terminal Terminal
	Last     probe.Result
	Polls    int
	Elapsed  time.Duration
	Err      error
}

// Policy polls a probe at a fixed interval until it reports healthy or
// unhealthy, or until Timeout elapses. No backoff: worst-case duration is
// Timeout, always. The first poll happens immediately.
type Policy struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    clockwork.Clock
}

// Wait runs the polling loop. Probe errors are treated as transient: the
// loop keeps polling and the last error is carried into the outcome.
func (p Policy) Wait(ctx context.Context, pr probe.Probe) Outcome {
	clk := p.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	start := clk.Now()
	deadline := clk.NewTimer(p.Timeout)
	defer deadline.Stop()
	tick := clk.NewTicker(p.Interval)
	defer tick.Stop()

	var last probe.Result
	var lastErr error
	polls := 0
	for {
		res, err := pr.Check(ctx)
		polls++
		if err != nil {
			lastErr = err
		} else {
			last = res
			lastErr = nil
			switch res.State {
			case probe.StateHealthy:
				return Outcome{Terminal: TerminalHealthy, Last: res, Polls: polls, Elapsed: clk.Since(start)}
			case probe.StateUnhealthy:
				return Outcome{Terminal: TerminalUnhealthy, Last: res, Polls: polls, Elapsed: clk.Since(start)}
			}
		}

		select {
		case <-ctx.Done():
			return Outcome{Terminal: TerminalCanceled, Last: last, Polls: polls, Elapsed: clk.Since(start), Err: ctx.Err()}
		case <-deadline.Chan():
			return Outcome{Terminal: TerminalTimeout, Last: last, Polls: polls, Elapsed: clk.Since(start), Err: lastErr}
		case <-tick.Chan():
			// The tick and the deadline can fire on the same instant;
			// the deadline wins so the boundary is exact.
			select {
			case <-deadline.Chan():
				return Outcome{Terminal: TerminalTimeout, Last: last, Polls: polls, Elapsed: clk.Since(start), Err: lastErr}
			default:
			}
		}
	}
}
