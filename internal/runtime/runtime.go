package runtime

import (
	"context"
	"fmt"
	"io"

	"github.com/varekai/stackup/internal/probe"
)

// Client is the execution-environment collaborator. All container mutation
// in the system goes through this interface; nothing else writes to the
// runtime. Implementations must be safe for concurrent use.
type Client interface {
	// Ping verifies the runtime is reachable.
	Ping(ctx context.Context) error
	// Start issues a start command for the named container.
	Start(ctx context.Context, container string) error
	// Inspect reports the runtime's view of the container as a probe result.
	// A missing container is reported as StateNotFound, not as an error.
	Inspect(ctx context.Context, container string) (probe.Result, error)
	// Logs returns a stream of the container's recent output.
	Logs(ctx context.Context, container string, tail int) (io.ReadCloser, error)
	// Restart restarts the named container.
	Restart(ctx context.Context, container string) error
}

// UnavailableError reports that the runtime itself is unreachable. This is
// fatal for a bring-up: nothing can be started or inspected.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("container runtime unavailable: %v (is the docker daemon running?)", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
