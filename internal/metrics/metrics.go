package metrics

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

// Metrics holds the collectors exported by keel.
// Each instance owns its registry so tests and embedded servers never collide
// on the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	compiles      prometheus.Counter
	classified    *prometheus.CounterVec
	droppedEdges  prometheus.Counter
	layouts       prometheus.Counter
	layoutNodes   prometheus.Histogram
	requests      *prometheus.CounterVec
	requestTiming *prometheus.HistogramVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		compiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keel_logic_compiles_total",
			Help: "Number of condition trees compiled to expressions",
		}),
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keel_logic_classified_total",
			Help: "Number of expressions classified, by resulting editor mode",
		}, []string{"mode"}),
		droppedEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keel_statechart_dropped_edges_total",
			Help: "Edges dropped while converting a graph because an endpoint was missing",
		}),
		layouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keel_layouts_total",
			Help: "Number of layered layouts computed",
		}),
		layoutNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "keel_layout_nodes",
			Help:    "Node count of laid out graphs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keel_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "keel_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.compiles,
		m.classified,
		m.droppedEdges,
		m.layouts,
		m.layoutNodes,
		m.requests,
		m.requestTiming,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Compiled records one tree compilation.
func (m *Metrics) Compiled() {
	if m == nil {
		return
	}
	m.compiles.Inc()
}

// Classified records the mode an expression was classified into.
func (m *Metrics) Classified(mode string) {
	if m == nil {
		return
	}
	m.classified.WithLabelValues(mode).Inc()
}

// DroppedEdges records dangling edges removed during graph conversion.
func (m *Metrics) DroppedEdges(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedEdges.Add(float64(n))
}

// LaidOut records one layout run over n nodes.
func (m *Metrics) LaidOut(n int) {
	if m == nil {
		return
	}
	m.layouts.Inc()
	m.layoutNodes.Observe(float64(n))
}

// Middleware counts and times requests by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestTiming.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
