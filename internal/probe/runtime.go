package probe

import (
	"context"
)

// Inspector is the slice of the execution environment a runtime probe needs.
// The full client lives in internal/runtime; only Inspect is consumed here.
type Inspector interface {
	Inspect(ctx context.Context, container string) (Result, error)
}

// RuntimeProbe reads readiness straight from the execution environment:
// the container's state and, when one is defined, its healthcheck status.
// Services without an explicit probe use this; a plain running container
// with no healthcheck reports healthy so the absence of a probe never
// blocks forward progress.
type RuntimeProbe struct {
	Container string
	Inspector Inspector
}

func (p RuntimeProbe) Check(ctx context.Context) (Result, error) {
	return p.Inspector.Inspect(ctx, p.Container)
}

func (p RuntimeProbe) Describe() string { return "runtime:" + p.Container }
