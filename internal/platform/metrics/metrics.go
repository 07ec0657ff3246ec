// Package metrics exposes Prometheus instrumentation for the HTTP surface,
// task lifecycle events and task query fallbacks.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/atom-todo-api/internal/events"
	"github.com/phrazzld/atom-todo-api/internal/taskquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "todo"

// unmatchedRoute labels requests that did not resolve to a route, so unknown
// paths cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

// Metrics holds the collectors registered for one application instance.
type Metrics struct {
	gatherer prometheus.Gatherer

	RequestTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TaskEvents      *prometheus.CounterVec
	QueryFallbacks  *prometheus.CounterVec
}

// New registers the collectors on reg. Passing nil uses a fresh registry,
// which keeps tests independent of the global default registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		RequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TaskEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_events_total",
				Help:      "Task lifecycle events by type",
			},
			[]string{"type"},
		),
		QueryFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_query_sort_fallbacks_total",
				Help:      "Task listings sorted in memory because the store could not order natively",
			},
			[]string{"sort_by"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by the chi route
// pattern rather than the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		m.RequestTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}

// HandleEvent counts a task lifecycle event.
func (m *Metrics) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	m.TaskEvents.WithLabelValues(string(event.Type)).Inc()
	return nil
}

// ObserveFallback counts an in-memory sort fallback. It matches
// taskquery.FallbackObserver.
func (m *Metrics) ObserveFallback(field taskquery.SortField) {
	m.QueryFallbacks.WithLabelValues(string(field)).Inc()
}

var _ events.EventHandler = (*Metrics)(nil)
