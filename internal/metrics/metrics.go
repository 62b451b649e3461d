// Package metrics exposes Prometheus counters for the collection pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the pipeline reports to. A nil *Metrics is
// valid and records nothing, so tests can pass nil.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	candidatesTotal  *prometheus.CounterVec
	duplicatesTotal  *prometheus.CounterVec
	toolsSavedTotal  prometheus.Counter
	pushResultsTotal *prometheus.CounterVec
}

// New creates and registers the pipeline metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_runs_total",
			Help: "Collection runs by terminal status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "collector_run_duration_seconds",
			Help:    "Wall-clock duration of collection runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		candidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_candidates_total",
			Help: "Candidates fetched, by source.",
		}, []string{"source"}),
		duplicatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_duplicates_total",
			Help: "Candidates dropped by dedup, by duplicate kind.",
		}, []string{"kind"}),
		toolsSavedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_tools_saved_total",
			Help: "Tools persisted across all runs.",
		}),
		pushResultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_push_results_total",
			Help: "Push delivery outcomes.",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.candidatesTotal,
		m.duplicatesTotal,
		m.toolsSavedTotal,
		m.pushResultsTotal,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// RunCompleted records one terminal collection run.
func (m *Metrics) RunCompleted(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// CandidatesFetched records candidates contributed by one source.
func (m *Metrics) CandidatesFetched(source string, count int) {
	if m == nil {
		return
	}
	m.candidatesTotal.WithLabelValues(source).Add(float64(count))
}

// DuplicatesDropped records dedup drops by kind (url, name, batch).
func (m *Metrics) DuplicatesDropped(kind string, count int) {
	if m == nil {
		return
	}
	m.duplicatesTotal.WithLabelValues(kind).Add(float64(count))
}

// ToolsSaved records persisted tools.
func (m *Metrics) ToolsSaved(count int) {
	if m == nil {
		return
	}
	m.toolsSavedTotal.Add(float64(count))
}

// PushOutcomes records one push run's delivery results.
func (m *Metrics) PushOutcomes(sent, failed, expired int) {
	if m == nil {
		return
	}
	m.pushResultsTotal.WithLabelValues("sent").Add(float64(sent))
	m.pushResultsTotal.WithLabelValues("failed").Add(float64(failed))
	m.pushResultsTotal.WithLabelValues("expired").Add(float64(expired))
}
