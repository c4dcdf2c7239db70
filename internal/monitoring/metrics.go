// Package monitoring exports pricing metrics to Prometheus and raises
// webhook alerts when a batch looks unhealthy.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carblue/pricing-cli/internal/engine"
	"github.com/carblue/pricing-cli/internal/model"
)

var _ engine.Observer = (*Metrics)(nil)

// Metrics holds the pricing counters on a private registry. It implements
// engine.Observer.
type Metrics struct {
	registry *prometheus.Registry

	rowsPriced   *prometheus.CounterVec
	rowsFailed   *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	batchRows    *prometheus.HistogramVec
	batchSeconds *prometheus.HistogramVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewMetrics registers the pricing metrics on a fresh registry, together
// with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		rowsPriced: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_rows_priced_total",
			Help: "Rows priced, by marketplace and health status.",
		}, []string{"marketplace", "status"}),
		rowsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_rows_failed_total",
			Help: "Rows rejected during pricing, by marketplace.",
		}, []string{"marketplace"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_bracket_fallbacks_total",
			Help: "Fee lookups that resolved past the last bracket, by kind.",
		}, []string{"marketplace", "kind"}),
		batchRows: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pricing_batch_rows",
			Help:    "Rows per priced batch.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"marketplace"}),
		batchSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pricing_batch_duration_seconds",
			Help:    "Wall time to price a batch.",
			Buckets: prometheus.DefBuckets,
		}, []string{"marketplace"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RowPriced implements engine.Observer.
func (m *Metrics) RowPriced(marketplace string, status model.HealthStatus) {
	m.rowsPriced.WithLabelValues(marketplace, string(status)).Inc()
}

// RowFailed implements engine.Observer.
func (m *Metrics) RowFailed(marketplace string) {
	m.rowsFailed.WithLabelValues(marketplace).Inc()
}

// Fallback implements engine.Observer.
func (m *Metrics) Fallback(marketplace, kind string) {
	m.fallbacks.WithLabelValues(marketplace, kind).Inc()
}

// BatchDone implements engine.Observer.
func (m *Metrics) BatchDone(marketplace string, rows int, elapsed time.Duration) {
	m.batchRows.WithLabelValues(marketplace).Observe(float64(rows))
	m.batchSeconds.WithLabelValues(marketplace).Observe(elapsed.Seconds())
}

// Middleware records request counts and latencies. route reports the
// matched route pattern so label cardinality stays bounded.
func (m *Metrics) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.inFlight.Inc()
			defer m.inFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			path := r.URL.Path
			if route != nil {
				if p := route(r); p != "" {
					path = p
				}
			}
			labels := prometheus.Labels{
				"method": r.Method,
				"route":  path,
				"status": strconv.Itoa(sw.status),
			}
			m.requests.With(labels).Inc()
			m.requestDuration.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
