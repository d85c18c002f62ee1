package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	bringups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackup",
			Subsystem: "orchestrator",
			Name:      "bringups_total",
			Help:      "Number of bring-up runs by result.",
		}, []string{"result"},
	)
	waveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stackup",
			Subsystem: "orchestrator",
			Name:      "wave_duration_seconds",
			Help:      "Wall time spent waiting on each startup wave.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"wave"},
	)
	probePolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackup",
			Subsystem: "probe",
			Name:      "polls_total",
			Help:      "Probe polls by service and observed state.",
		}, []string{"service", "state"},
	)
	serviceState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stackup",
			Subsystem: "service",
			Name:      "state",
			Help:      "Current state per service (1 = active state, 0 = inactive).",
		}, []string{"service", "state"},
	)
	bootstrapSteps = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stackup",
			Subsystem: "bootstrap",
			Name:      "step_duration_seconds",
			Help:      "Duration of each bootstrap reconciliation step.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "result"},
	)
)

// Register registers all metrics with the provided registerer.
// Safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	for _, c := range []prometheus.Collector{bringups, waveDuration, probePolls, serviceState, bootstrapSteps} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func ObserveBringup(result string) { bringups.WithLabelValues(result).Inc() }

func ObserveWave(wave string, d time.Duration) {
	waveDuration.WithLabelValues(wave).Observe(d.Seconds())
}

func ObservePoll(service, state string) { probePolls.WithLabelValues(service, state).Inc() }

// SetServiceState flips the per-state gauge so exactly one state is active.
func SetServiceState(service, state string, states []string) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1.0
		}
		serviceState.WithLabelValues(service, s).Set(v)
	}
}

func ObserveBootstrapStep(step string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	bootstrapSteps.WithLabelValues(step, result).Observe(d.Seconds())
}
