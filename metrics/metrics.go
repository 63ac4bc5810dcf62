// Package metrics exposes Prometheus collectors for workflow activity and a
// core.Hook that feeds them from step events.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/flowmesh/core"
)

// Metrics bundles the Prometheus collectors that report step activity.
type Metrics struct {
	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
	stepRetries  *prometheus.CounterVec
	stepsActive  prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the package-level metrics instance registered with the
// global Prometheus registry. The collectors are created only once to avoid
// duplicate registration panics when several orchestrators share a process.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew constructs a Metrics instance using the provided registerer. Supply
// a fresh registry when unique metric names are required (for example in
// tests). Registration errors panic, mirroring promauto semantics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	stepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flowmesh",
			Subsystem: "workflow",
			Name:      "step_duration_seconds",
			Help:      "Duration of each workflow step attempt.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"workflow", "step", "status"},
	)
	stepFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowmesh",
			Subsystem: "workflow",
			Name:      "step_failures_total",
			Help:      "Total number of step attempts that failed.",
		},
		[]string{"workflow", "step"},
	)
	stepRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowmesh",
			Subsystem: "workflow",
			Name:      "step_retries_total",
			Help:      "Number of step attempts beyond the first.",
		},
		[]string{"workflow", "step"},
	)
	stepsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "flowmesh",
			Subsystem: "workflow",
			Name:      "steps_active",
			Help:      "Number of step attempts currently executing.",
		},
	)

	collectors := []prometheus.Collector{stepDuration, stepFailures, stepRetries, stepsActive}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector {
				case stepDuration:
					stepDuration = already.ExistingCollector.(*prometheus.HistogramVec)
				case stepFailures:
					stepFailures = already.ExistingCollector.(*prometheus.CounterVec)
				case stepRetries:
					stepRetries = already.ExistingCollector.(*prometheus.CounterVec)
				case stepsActive:
					stepsActive = already.ExistingCollector.(prometheus.Gauge)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		stepDuration: stepDuration,
		stepFailures: stepFailures,
		stepRetries:  stepRetries,
		stepsActive:  stepsActive,
	}
}

// ObserveStep records the outcome of one step attempt.
func (m *Metrics) ObserveStep(workflow, step, status string, duration time.Duration) {
	if m == nil || m.stepDuration == nil {
		return
	}
	m.stepDuration.WithLabelValues(workflow, step, status).Observe(duration.Seconds())
}

// IncFailure increments the failure counter for a step.
func (m *Metrics) IncFailure(workflow, step string) {
	if m == nil || m.stepFailures == nil {
		return
	}
	m.stepFailures.WithLabelValues(workflow, step).Inc()
}

// IncRetry increments the retry counter for a step.
func (m *Metrics) IncRetry(workflow, step string) {
	if m == nil || m.stepRetries == nil {
		return
	}
	m.stepRetries.WithLabelValues(workflow, step).Inc()
}

func (m *Metrics) incActive() {
	if m != nil && m.stepsActive != nil {
		m.stepsActive.Inc()
	}
}

func (m *Metrics) decActive() {
	if m != nil && m.stepsActive != nil {
		m.stepsActive.Dec()
	}
}

// Hook adapts Metrics to the core.Hook interface.
type Hook struct {
	metrics *Metrics
}

// NewHook returns a hook feeding m. A nil m uses the shared default metrics.
func NewHook(m *Metrics) *Hook {
	if m == nil {
		m = Default()
	}
	return &Hook{metrics: m}
}

// BeforeStep implements core.Hook.
func (h *Hook) BeforeStep(_ context.Context, ev core.StepEvent) {
	h.metrics.incActive()
	if ev.Attempt > 1 {
		h.metrics.IncRetry(ev.Workflow, ev.Step)
	}
}

// AfterStep implements core.Hook. Attempt 0 marks a step that was finalized
// without dispatch (skipped, aborted, or failed before its agent ran), so it
// has no matching BeforeStep and must not touch the active gauge.
func (h *Hook) AfterStep(_ context.Context, ev core.StepEvent) {
	if ev.Attempt > 0 {
		h.metrics.decActive()
	}
	h.metrics.ObserveStep(ev.Workflow, ev.Step, ev.Status, ev.Duration)
	if ev.Status == core.StepStatusFailed {
		h.metrics.IncFailure(ev.Workflow, ev.Step)
	}
}
