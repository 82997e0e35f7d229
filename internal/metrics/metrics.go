// Package metrics exports composition engine and HTTP outcomes to
// Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Recorder implements compose.MetricsRecorder on a private registry so
// tests and multiple servers in one process do not collide.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	unknown    *prometheus.CounterVec
	requests   *prometheus.CounterVec
}

// NewRecorder registers the storefront collectors. withRuntime adds the Go
// runtime and process collectors.
func NewRecorder(withRuntime bool) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_operations_total",
			Help:      "Composition engine operations by outcome.",
		}, []string{"operation", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_operation_duration_seconds",
			Help:      "Composition engine operation latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"operation"}),
		unknown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_blocks_total",
			Help:      "Layout entries naming a block with no renderer.",
		}, []string{"block"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	r.registry.MustRegister(r.operations, r.durations, r.unknown, r.requests)
	if withRuntime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Observe records an engine operation outcome.
func (r *Recorder) Observe(_ context.Context, operation, outcome string, d time.Duration) {
	if operation == "" {
		return
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.durations.WithLabelValues(operation).Observe(d.Seconds())
}

// UnknownBlock counts a layout key that resolved to no renderer.
func (r *Recorder) UnknownBlock(key string) {
	r.unknown.WithLabelValues(key).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry for additional collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Middleware counts requests served by next under the given route label.
func (r *Recorder) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, req)
		r.requests.WithLabelValues(route, strconv.Itoa(sw.code)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
