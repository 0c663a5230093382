// Package metrics owns the Prometheus collectors the scheduler updates.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reap outcomes.
const (
	OutcomeExited   = "exited"
	OutcomeFailed   = "failed"
	OutcomeSignaled = "signaled"
)

// Scheduler groups the scheduling loop collectors in a private registry.
type Scheduler struct {
	registry      *prometheus.Registry
	dispatched    *prometheus.CounterVec
	spawnFailures *prometheus.CounterVec
	reaped        *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	busyRunners   prometheus.Gauge
	iterations    prometheus.Counter
}

// New registers the scheduler collectors plus the Go runtime and process collectors.
func New() *Scheduler {
	m := &Scheduler{
		registry: prometheus.NewRegistry(),
		dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runqd_dispatch_total",
				Help: "Jobs handed to a worker",
			},
			[]string{"task"},
		),
		spawnFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runqd_spawn_failures_total",
				Help: "Worker starts that failed; the job stays queued",
			},
			[]string{"task"},
		),
		reaped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runqd_reaped_total",
				Help: "Workers collected after they ended",
			},
			[]string{"task", "outcome"}, // exited, failed, signaled
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "runqd_job_duration_seconds",
				Help:    "Time from dispatch to reap",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 16), // 50ms to ~27m
			},
			[]string{"task"},
		),
		busyRunners: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "runqd_busy_runners",
				Help: "Runner slots currently bound to a worker",
			},
		),
		iterations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runqd_iterations_total",
				Help: "Completed passes of the scheduling loop",
			},
		),
	}
	m.registry.MustRegister(
		m.dispatched,
		m.spawnFailures,
		m.reaped,
		m.jobDuration,
		m.busyRunners,
		m.iterations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Scheduler) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Scheduler) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Scheduler) Dispatched(task string) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(task).Inc()
}

func (m *Scheduler) SpawnFailed(task string) {
	if m == nil {
		return
	}
	m.spawnFailures.WithLabelValues(task).Inc()
}

// Reaped records a collected worker and, when the start time is known, its runtime.
func (m *Scheduler) Reaped(task, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reaped.WithLabelValues(task, outcome).Inc()
	if elapsed > 0 {
		m.jobDuration.WithLabelValues(task).Observe(elapsed.Seconds())
	}
}

func (m *Scheduler) SetBusy(n int) {
	if m == nil {
		return
	}
	m.busyRunners.Set(float64(n))
}

func (m *Scheduler) Iteration() {
	if m == nil {
		return
	}
	m.iterations.Inc()
}
