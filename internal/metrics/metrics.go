// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector. Each instance registers on its own
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	httpRequestsInFlight  prometheus.Gauge
	httpResponseSizeBytes *prometheus.HistogramVec

	// Workflow metrics
	transitionsTotal        *prometheus.CounterVec
	validationFailuresTotal *prometheus.CounterVec
	analyticsCacheTotal     *prometheus.CounterVec
	notificationsTotal      *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		httpResponseSizeBytes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8), // 100B to 10GB
			},
			[]string{"method", "path"},
		),

		transitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safecheck_transitions_total",
				Help: "Workflow actions applied to inspections",
			},
			[]string{"kind", "action"},
		),
		validationFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safecheck_validation_failures_total",
				Help: "Submissions rejected because fields or ratings were missing",
			},
			[]string{"kind"},
		),
		analyticsCacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safecheck_analytics_cache_total",
				Help: "Analytics summary cache lookups",
			},
			[]string{"result"},
		),
		notificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safecheck_notifications_total",
				Help: "Notification delivery attempts by outcome",
			},
			[]string{"event", "outcome"},
		),
	}
}

// Middleware records request count, latency and response size.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip metrics endpoint itself to avoid recursion
			if c.Path() == "/metrics" {
				return next(c)
			}

			start := time.Now()
			m.httpRequestsInFlight.Inc()
			defer m.httpRequestsInFlight.Dec()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the
				// recorded status is the one the client sees.
				c.Error(err)
				err = nil
			}

			method := c.Request().Method
			path := c.Path()
			status := strconv.Itoa(c.Response().Status)

			m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
			m.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			m.httpResponseSizeBytes.WithLabelValues(method, path).Observe(float64(c.Response().Size))
			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordTransition counts one workflow action on a kind.
func (m *Metrics) RecordTransition(kind, action string) {
	m.transitionsTotal.WithLabelValues(kind, action).Inc()
}

// RecordValidationFailure counts one rejected submission.
func (m *Metrics) RecordValidationFailure(kind string) {
	m.validationFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordCacheLookup counts an analytics cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.analyticsCacheTotal.WithLabelValues(result).Inc()
}

// RecordNotification counts one delivery attempt. outcome is sent,
// retried or failed.
func (m *Metrics) RecordNotification(event, outcome string) {
	m.notificationsTotal.WithLabelValues(event, outcome).Inc()
}
