package runtime

import (
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"

	"github.com/varekai/stackup/internal/probe"
)

func inspectWith(status string, health *container.Health, exitCode int) container.InspectResponse {
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			State: &container.State{
				Status:   status,
				ExitCode: exitCode,
				Health:   health,
			},
		},
	}
}

func TestStateFromInspect(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		insp container.InspectResponse
		want probe.State
	}{
		{"running no healthcheck", inspectWith("running", nil, 0), probe.StateHealthy},
		{"healthcheck healthy", inspectWith("running", &container.Health{Status: "healthy"}, 0), probe.StateHealthy},
		{"healthcheck starting", inspectWith("running", &container.Health{Status: "starting"}, 0), probe.StateStarting},
		{"healthcheck unhealthy", inspectWith("running", &container.Health{Status: "unhealthy"}, 0), probe.StateUnhealthy},
		{"created", inspectWith("created", nil, 0), probe.StateStarting},
		{"exited", inspectWith("exited", nil, 137), probe.StateStopped},
		{"no state", container.InspectResponse{}, probe.StateUnknown},
	}
	for _, tc := range cases {
		got := stateFromInspect(tc.insp, now)
		if got.State != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got.State, tc.want)
		}
	}
	exited := stateFromInspect(inspectWith("exited", nil, 137), now)
	if exited.Code != 137 {
		t.Fatalf("exit code should be carried, got %d", exited.Code)
	}
}
