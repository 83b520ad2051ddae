// Package metrics exposes prometheus instrumentation for scenario
// runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one runner process.
type Metrics struct {
	registry *prometheus.Registry

	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	runsTotal    *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scenrun_tasks_total",
			Help: "Task completions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scenrun_task_duration_seconds",
			Help:    "Task wall time by kind.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"kind"}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scenrun_runs_total",
			Help: "Scenario run completions by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveTask records the completion of one task.
func (m *Metrics) ObserveTask(kind, outcome string, duration time.Duration) {
	m.tasksTotal.WithLabelValues(kind, outcome).Inc()
	m.taskDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveRun records the completion of one run.
func (m *Metrics) ObserveRun(outcome string) {
	m.runsTotal.WithLabelValues(outcome).Inc()
}

// Handler returns an HTTP handler serving the metrics of this runner.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
