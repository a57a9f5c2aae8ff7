package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for trackboard
type Metrics struct {
	// Upstream reporting service
	UpstreamRequestsTotal          *prometheus.CounterVec
	UpstreamRequestDurationSeconds *prometheus.HistogramVec
	UpstreamAuthRejectedTotal      prometheus.Counter

	// Status store
	StatusReadsTotal           *prometheus.CounterVec
	StatusWritesTotal          *prometheus.CounterVec
	StatusReadModifyWriteTotal prometheus.Counter

	// Dashboard HTTP
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal            *prometheus.CounterVec

	// Fetch sequencing
	StaleResponsesDroppedTotal prometheus.Counter

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		UpstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackboard_upstream_requests_total",
				Help: "Total requests issued to the reporting service",
			},
			[]string{"endpoint", "status"},
		),
		UpstreamRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trackboard_upstream_request_duration_seconds",
				Help:    "Reporting service request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		UpstreamAuthRejectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trackboard_upstream_auth_rejected_total",
				Help: "Total HTTP 401 responses from the reporting service",
			},
		),
		StatusReadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackboard_status_reads_total",
				Help: "Total status store reads",
			},
			[]string{"backend", "result"},
		),
		StatusWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackboard_status_writes_total",
				Help: "Total status store writes",
			},
			[]string{"backend", "result"},
		),
		StatusReadModifyWriteTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trackboard_status_read_modify_write_total",
				Help: "Read-modify-write cycles against the remote document store; concurrent cycles can silently drop each other's writes",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackboard_http_requests_total",
				Help: "Total dashboard HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trackboard_http_request_duration_seconds",
				Help:    "Dashboard HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackboard_http_errors_total",
				Help: "Total dashboard HTTP error responses",
			},
			[]string{"type"},
		),
		StaleResponsesDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trackboard_stale_responses_dropped_total",
				Help: "Report fetches discarded because a newer fetch was issued before they completed",
			},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDurationSeconds,
		m.UpstreamAuthRejectedTotal,
		m.StatusReadsTotal,
		m.StatusWritesTotal,
		m.StatusReadModifyWriteTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.HTTPErrorsTotal,
		m.StaleResponsesDroppedTotal,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance, or nil if not set
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}
