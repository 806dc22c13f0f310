// Package metrics exposes run and execution counters in Prometheus format.
// The Collector is a processor observer with its own registry, so several
// collectors can coexist in one process (and in tests).
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/processor"
	"github.com/specialistvlad/burstbuild/internal/result"
)

const namespace = "burstbuild"

// Collector counts transitions, finished executions and runs.
type Collector struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	executions  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
}

var (
	_ processor.Observer       = (*Collector)(nil)
	_ processor.ResultObserver = (*Collector)(nil)
)

// New creates a Collector with every metric registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "transitions_total", Help: "State transitions by target state."},
			[]string{"state"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "executions_total", Help: "Finished executions by task and final state."},
			[]string{"task", "state"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "execution_duration_seconds", Help: "Duration of executions that ran a body or were aborted.", Buckets: prometheus.DefBuckets},
			[]string{"task"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "runs_total", Help: "Completed runs by outcome."},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Namespace: namespace, Name: "run_duration_seconds", Help: "Duration of complete runs.", Buckets: prometheus.DefBuckets},
		),
	}
	c.registry.MustRegister(c.transitions, c.executions, c.duration, c.runs, c.runDuration)
	return c
}

// OnTransition implements processor.Observer.
func (c *Collector) OnTransition(_ context.Context, ev execution.Event) {
	c.transitions.WithLabelValues(ev.To.String()).Inc()
	if !ev.Done {
		return
	}
	c.executions.WithLabelValues(ev.Task, ev.To.String()).Inc()
	if ev.To != execution.Repeated {
		c.duration.WithLabelValues(ev.Task).Observe(ev.Duration.Seconds())
	}
}

// OnResult implements processor.ResultObserver.
func (c *Collector) OnResult(_ context.Context, res *result.Result) {
	status := "failure"
	if res.Success {
		status = "success"
	}
	c.runs.WithLabelValues(status).Inc()
	c.runDuration.Observe(res.Duration.Seconds())
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
