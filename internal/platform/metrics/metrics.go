// Package metrics exposes the dashboard's Prometheus instruments. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	backendErrors   *prometheus.CounterVec
	aggregation     *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_cache_hits_total",
				Help: "Patient cache lookups served from the cache",
			},
			[]string{"key_kind"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_cache_misses_total",
				Help: "Patient cache lookups that went to the datastore",
			},
			[]string{"key_kind"},
		),
		backendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_backend_errors_total",
				Help: "Datastore failures absorbed by the patient aggregator",
			},
			[]string{"operation"},
		),
		aggregation: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_aggregation_duration_seconds",
				Help:    "Time spent building patient records from the datastore",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"operation"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.cacheHits, m.cacheMisses, m.backendErrors, m.aggregation,
		m.httpRequests, m.httpRequestTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) CacheHit(keyKind string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(keyKind).Inc()
}

func (m *Metrics) CacheMiss(keyKind string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(keyKind).Inc()
}

func (m *Metrics) BackendError(operation string) {
	if m == nil {
		return
	}
	m.backendErrors.WithLabelValues(operation).Inc()
}

// ObserveAggregation records the time since start.
func (m *Metrics) ObserveAggregation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.aggregation.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Registry is exposed for tests and for registering extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by matched route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.httpRequestTime.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
