// Package metrics exposes Prometheus collectors for tasks, tool calls and
// collaborations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the orchestration metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	tasksTotal          *prometheus.CounterVec
	taskDuration        *prometheus.HistogramVec
	tasksRunning        prometheus.Gauge
	toolCallsTotal      *prometheus.CounterVec
	collaborationsTotal *prometheus.CounterVec
	collabDuration      *prometheus.HistogramVec
}

// NewCollector creates a collector whose metrics are prefixed by namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		tasksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Tasks that reached a terminal state",
		}, []string{"archetype", "status"}),
		taskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task execution time in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"archetype"}),
		tasksRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_running",
			Help:      "Tasks currently in progress",
		}),
		toolCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by outcome",
		}, []string{"tool", "outcome"}),
		collaborationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborations_total",
			Help:      "Collaborations that reached a terminal state",
		}, []string{"mode", "status"}),
		collabDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaboration_duration_seconds",
			Help:      "Collaboration run time in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// TaskStarted marks a task as running. Safe on a nil collector.
func (c *Collector) TaskStarted() {
	if c == nil {
		return
	}
	c.tasksRunning.Inc()
}

// TaskFinished records a terminal task.
func (c *Collector) TaskFinished(archetype, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.tasksRunning.Dec()
	c.tasksTotal.WithLabelValues(archetype, status).Inc()
	c.taskDuration.WithLabelValues(archetype).Observe(d.Seconds())
}

// ToolCall records one tool invocation.
func (c *Collector) ToolCall(toolID string, ok bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	c.toolCallsTotal.WithLabelValues(toolID, outcome).Inc()
}

// CollaborationFinished records a terminal collaboration.
func (c *Collector) CollaborationFinished(mode, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.collaborationsTotal.WithLabelValues(mode, status).Inc()
	c.collabDuration.WithLabelValues(mode).Observe(d.Seconds())
}
