// Package metrics exposes session and case access metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/service"
)

const namespace = "lexcourt"

// Collector implements service.Metrics with Prometheus collectors.
type Collector struct {
	transitions     *prometheus.CounterVec
	profileResolves *prometheus.CounterVec
	resolveAttempts prometheus.Histogram
	caseQueries     *prometheus.CounterVec
	activeClients   prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

var _ service.Metrics = (*Collector)(nil)

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session state transitions by cause.",
		}, []string{"from", "to", "cause"}),
		profileResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_resolves_total",
			Help:      "Profile lookups by outcome.",
		}, []string{"outcome"}),
		resolveAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "profile_resolve_attempts",
			Help:      "Store reads needed to resolve a profile.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
		caseQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "case_queries_total",
			Help:      "Case reads by operation and outcome.",
		}, []string{"operation", "outcome"}),
		activeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_client_contexts",
			Help:      "Client contexts currently held by the session registry.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.transitions,
		c.profileResolves,
		c.resolveAttempts,
		c.caseQueries,
		c.activeClients,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) ObserveTransition(from, to entity.SessionState, cause entity.TransitionCause) {
	c.transitions.WithLabelValues(string(from), string(to), string(cause)).Inc()
}

func (c *Collector) ObserveProfileResolve(outcome string, attempts int) {
	c.profileResolves.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		c.resolveAttempts.Observe(float64(attempts))
	}
}

func (c *Collector) ObserveCaseQuery(operation, outcome string) {
	c.caseQueries.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) SetActiveClients(n int) {
	c.activeClients.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Middleware records count and latency of every request by its route template.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			timer := prometheus.NewTimer(c.httpLatency.WithLabelValues(ctx.Request().Method, route(ctx)))
			err := next(ctx)
			timer.ObserveDuration()

			status := ctx.Response().Status
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			}
			c.httpRequests.WithLabelValues(ctx.Request().Method, route(ctx), strconv.Itoa(status)).Inc()

			return err
		}
	}
}

func route(ctx echo.Context) string {
	if path := ctx.Path(); path != "" {
		return path
	}

	return "unmatched"
}
