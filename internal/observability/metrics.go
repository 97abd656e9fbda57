package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
	recomputeRuns   *prometheus.CounterVec
	queueUpdates    prometheus.Counter
	queueFailures   prometheus.Counter
	pendingTickets  prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetrics registers the service collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Errors rendered to clients by error code",
		}, []string{"method", "path", "code"}),
		recomputeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_recompute_runs_total",
			Help: "Queue position recompute runs by outcome",
		}, []string{"trigger", "outcome"}),
		queueUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_position_updates_total",
			Help: "Queue position rows rewritten",
		}),
		queueFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_position_failures_total",
			Help: "Queue position rows that failed to persist",
		}),
		pendingTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_pending_tickets",
			Help: "Pending tickets seen by the last recompute",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "report_cache_hits_total",
			Help: "Report cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "report_cache_misses_total",
			Help: "Report cache misses",
		}),
	}

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.errorTotal,
		m.recomputeRuns, m.queueUpdates, m.queueFailures, m.pendingTickets,
		m.cacheHits, m.cacheMisses,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request count and latency.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, label).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, label).Inc()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorTotal.WithLabelValues(method, path, code).Inc()
}

// RecordRecompute records one queue recompute run.
func (m *Metrics) RecordRecompute(trigger string, pending, updated, failed int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	m.recomputeRuns.WithLabelValues(trigger, outcome).Inc()
	m.queueUpdates.Add(float64(updated))
	m.queueFailures.Add(float64(failed))
	m.pendingTickets.Set(float64(pending))
}

// RecordRecomputeFailure records a run that could not read the ticket set.
func (m *Metrics) RecordRecomputeFailure(trigger string) {
	if m == nil {
		return
	}
	m.recomputeRuns.WithLabelValues(trigger, "failed").Inc()
}

// RecordCacheLookup records a report cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
