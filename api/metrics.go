package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names.
const (
	MetricHTTPRequestsTotal         = "advtax_http_requests_total"
	MetricAnalysesTotal             = "advtax_analyses_total"
	MetricRecalculationRunsTotal    = "advtax_recalculation_runs_total"
	MetricRecalculationDuration     = "advtax_recalculation_duration_seconds"
	MetricRecalculationStatusChange = "advtax_recalculation_status_changes_total"
)

// Metrics holds the server's collectors on a private registry.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	analyses        *prometheus.CounterVec
	recalcRuns      *prometheus.CounterVec
	recalcDuration  prometheus.Histogram
	recalcStatusMov prometheus.Counter
}

// NewMetrics creates the collectors and registers them, plus the Go runtime
// and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "HTTP requests served, by method, route pattern and status code.",
			},
			[]string{"method", "route", "code"},
		),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAnalysesTotal,
				Help: "Engine analyses run, by source (stateless, estimate, cli).",
			},
			[]string{"source"},
		),
		recalcRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRecalculationRunsTotal,
				Help: "Scheduled recalculation passes, by outcome.",
			},
			[]string{"status"},
		),
		recalcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRecalculationDuration,
			Help:    "Duration of recalculation passes in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		recalcStatusMov: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRecalculationStatusChange,
			Help: "Schedule rows whose status moved during recalculation passes.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.analyses,
		m.recalcRuns,
		m.recalcDuration,
		m.recalcStatusMov,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveAnalysis counts one engine analysis.
func (m *Metrics) ObserveAnalysis(source string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(source).Inc()
}

// ObserveRecalculation records one scheduler pass.
func (m *Metrics) ObserveRecalculation(status string, d time.Duration, statusChanges int) {
	if m == nil {
		return
	}
	m.recalcRuns.WithLabelValues(status).Inc()
	m.recalcDuration.Observe(d.Seconds())
	m.recalcStatusMov.Add(float64(statusChanges))
}

// Middleware counts requests by route pattern, so /api/estimates/{id} is one
// series regardless of the ID.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
