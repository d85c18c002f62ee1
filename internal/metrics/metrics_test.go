package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIdempotent(t *testing.T) {
	r := prometheus.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(r); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestObserversDoNotPanic(t *testing.T) {
	ObserveBringup("ok")
	ObserveWave("1", 2*time.Second)
	ObservePoll("api", "starting")
	SetServiceState("api", "healthy", []string{"starting", "healthy", "unhealthy"})
	ObserveBootstrapStep("ensure-schema", 10*time.Millisecond, nil)
}
