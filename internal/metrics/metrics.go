// Package metrics exposes Prometheus instrumentation for cdr3net runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors of one process on a private registry.
type Metrics struct {
	Registry   *prometheus.Registry
	Selections *prometheus.CounterVec
	Durations  *prometheus.HistogramVec
	Records    prometheus.Counter
}

// New creates and registers the cdr3net collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cdr3net_backend_selections_total",
				Help: "Backend decisions taken, by backend.",
			},
			[]string{"backend"},
		),
		Durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cdr3net_computation_duration_seconds",
				Help:    "Wall-clock time of materialized computations.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 12),
			},
			[]string{"type", "backend"},
		),
		Records: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cdr3net_benchmark_records_total",
				Help: "Benchmark rows written.",
			},
		),
	}
	m.Registry.MustRegister(m.Selections, m.Durations, m.Records)
	return m
}

// ObserveSelection counts one backend decision.
func (m *Metrics) ObserveSelection(distributed bool) {
	m.Selections.WithLabelValues(backendLabel(distributed)).Inc()
}

// ObserveComputation records how long a computation of the given type took.
func (m *Metrics) ObserveComputation(kind string, distributed bool, d time.Duration) {
	m.Durations.WithLabelValues(kind, backendLabel(distributed)).Observe(d.Seconds())
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

func backendLabel(distributed bool) string {
	if distributed {
		return "distributed"
	}
	return "local"
}
