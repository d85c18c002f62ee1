package runtime

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/varekai/stackup/internal/probe"
)

// Docker implements Client against the local Docker daemon.
type Docker struct {
	cli *client.Client
}

// NewDocker connects using the standard environment (DOCKER_HOST etc.) and
// negotiates the API version with the daemon.
func NewDocker() (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Docker{cli: cli}, nil
}

func (d *Docker) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return &UnavailableError{Err: err}
	}
	return nil
}

func (d *Docker) Start(ctx context.Context, name string) error {
	if err := d.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("container %q not found: create it first (e.g. docker compose up --no-start): %w", name, err)
		}
		return fmt.Errorf("start container %q: %w", name, err)
	}
	return nil
}

func (d *Docker) Inspect(ctx context.Context, name string) (probe.Result, error) {
	insp, err := d.cli.ContainerInspect(ctx, name)
	now := time.Now()
	if err != nil {
		if client.IsErrNotFound(err) {
			return probe.Result{State: probe.StateNotFound, Detail: "no such container", CheckedAt: now}, nil
		}
		return probe.Result{State: probe.StateUnknown, CheckedAt: now}, err
	}
	return stateFromInspect(insp, now), nil
}

func stateFromInspect(insp container.InspectResponse, now time.Time) probe.Result {
	res := probe.Result{State: probe.StateUnknown, CheckedAt: now}
	if insp.State == nil {
		return res
	}
	st := insp.State
	if st.Health != nil && st.Health.Status != "" && st.Health.Status != "none" {
		res.Detail = "healthcheck " + string(st.Health.Status)
		switch string(st.Health.Status) {
		case "healthy":
			res.State = probe.StateHealthy
		case "unhealthy":
			res.State = probe.StateUnhealthy
		case "starting":
			res.State = probe.StateStarting
		}
		return res
	}
	switch st.Status {
	case "running":
		// No healthcheck defined: running is as healthy as it gets.
		res.State = probe.StateHealthy
	case "created", "restarting":
		res.State = probe.StateStarting
	case "exited", "dead", "paused", "removing":
		res.State = probe.StateStopped
		res.Detail = "container " + st.Status
		res.Code = st.ExitCode
	}
	return res
}

func (d *Docker) Logs(ctx context.Context, name string, tail int) (io.ReadCloser, error) {
	if tail <= 0 {
		tail = 200
	}
	rc, err := d.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return nil, fmt.Errorf("logs for container %q: %w", name, err)
	}
	return rc, nil
}

func (d *Docker) Restart(ctx context.Context, name string) error {
	if err := d.cli.ContainerRestart(ctx, name, container.StopOptions{}); err != nil {
		return fmt.Errorf("restart container %q: %w", name, err)
	}
	return nil
}

// Close releases the underlying client.
func (d *Docker) Close() error { return d.cli.Close() }
