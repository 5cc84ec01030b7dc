package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors shared by the API and worker.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	Registry            *prometheus.Registry
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ExtractionsTotal    *prometheus.CounterVec
	FetchDuration       *prometheus.HistogramVec
	RefreshJobsTotal    *prometheus.CounterVec
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopple_http_requests_total",
			Help: "Total HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopple_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	extractions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopple_extractions_total",
			Help: "Product link extractions by marketplace and outcome.",
		},
		[]string{"marketplace", "outcome"},
	)
	fetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopple_fetch_duration_seconds",
			Help:    "Time spent retrieving product pages.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"fetcher"},
	)
	refreshJobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopple_refresh_jobs_total",
			Help: "Catalog refresh jobs by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		httpRequests, httpDuration, extractions, fetchDuration, refreshJobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry:            registry,
		HTTPRequestsTotal:   httpRequests,
		HTTPRequestDuration: httpDuration,
		ExtractionsTotal:    extractions,
		FetchDuration:       fetchDuration,
		RefreshJobsTotal:    refreshJobs,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// IncExtraction counts one extraction outcome.
func (m *Metrics) IncExtraction(marketplace, outcome string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(marketplace, outcome).Inc()
}

// ObserveFetch records how long a page retrieval took.
func (m *Metrics) ObserveFetch(fetcher string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(fetcher).Observe(d.Seconds())
}

// IncRefresh counts one processed refresh job.
func (m *Metrics) IncRefresh(result string) {
	if m == nil {
		return
	}
	m.RefreshJobsTotal.WithLabelValues(result).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
