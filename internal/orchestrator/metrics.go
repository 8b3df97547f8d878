// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report pipeline activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	stageDuration    *prometheus.HistogramVec
	workerDuration   *prometheus.HistogramVec
	workerOutcomes   *prometheus.CounterVec
	pipelineOutcomes *prometheus.CounterVec
	pipelinesActive  prometheus.Gauge
}

// MustNewMetrics registers the pipeline collectors with reg. Collectors that
// are already registered are reused, so several engines may share one
// registry. Any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "repurposing",
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration spent in each pipeline stage.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage", "status"},
		),
		workerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "repurposing",
				Subsystem: "pipeline",
				Name:      "worker_duration_seconds",
				Help:      "Duration of individual worker invocations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"worker"},
		),
		workerOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "repurposing",
				Subsystem: "pipeline",
				Name:      "worker_outcomes_total",
				Help:      "Worker invocations by outcome.",
			},
			[]string{"worker", "status"},
		),
		pipelineOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "repurposing",
				Subsystem: "pipeline",
				Name:      "invocations_total",
				Help:      "Pipeline invocations by outcome.",
			},
			[]string{"status"},
		),
		pipelinesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "repurposing",
				Subsystem: "pipeline",
				Name:      "active",
				Help:      "Number of pipeline invocations in flight.",
			},
		),
	}

	m.stageDuration = register(reg, m.stageDuration)
	m.workerDuration = register(reg, m.workerDuration)
	m.workerOutcomes = register(reg, m.workerOutcomes)
	m.pipelineOutcomes = register(reg, m.pipelineOutcomes)
	m.pipelinesActive = register(reg, m.pipelinesActive)
	return m
}

// register registers c, returning the existing collector when an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveStage records the time spent in a stage.
func (m *Metrics) ObserveStage(stage Stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage.String(), status).Observe(d.Seconds())
}

// ObserveWorker records one worker invocation.
func (m *Metrics) ObserveWorker(worker string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.workerOutcomes.WithLabelValues(worker, status).Inc()
	m.workerDuration.WithLabelValues(worker).Observe(d.Seconds())
}

// ObservePipeline counts a finished invocation by status.
func (m *Metrics) ObservePipeline(status string) {
	if m == nil {
		return
	}
	m.pipelineOutcomes.WithLabelValues(status).Inc()
}

// IncActive marks an invocation as in flight.
func (m *Metrics) IncActive() {
	if m == nil {
		return
	}
	m.pipelinesActive.Inc()
}

// DecActive marks an invocation as finished.
func (m *Metrics) DecActive() {
	if m == nil {
		return
	}
	m.pipelinesActive.Dec()
}
