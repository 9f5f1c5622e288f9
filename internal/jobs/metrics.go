package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs       *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	broadcasts *prometheus.CounterVec
	lastResync prometheus.Gauge
	entries    prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// RecordResync counts a published menu invalidation and remembers when it
// happened and how many top-level entries the taxonomy resolved to.
func (m *Metrics) RecordResync(reason string, entries int) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.broadcasts.WithLabelValues(reason).Inc()
	m.lastResync.SetToCurrentTime()
	m.entries.Set(float64(entries))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	broadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_menu_broadcasts_total",
		Help: "Menu invalidations published by background jobs, by trigger reason.",
	}, []string{"reason"})
	lastResync := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portal_menu_last_resync_timestamp_seconds",
		Help: "Unix time of the last successful menu resync.",
	})
	entries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portal_menu_resync_entries",
		Help: "Top-level navigation entries resolved by the last menu resync.",
	})
	registerer.MustRegister(runs, failures, duration, broadcasts, lastResync, entries)
	return &Metrics{
		runs:       runs,
		failures:   failures,
		duration:   duration,
		broadcasts: broadcasts,
		lastResync: lastResync,
		entries:    entries,
	}
}
