package middleware

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/filemux/filemux/pkg/gateway"
)

// unmatchedPattern labels requests that did not resolve to a route.
const unmatchedPattern = "unmatched"

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "filemux").
	Namespace string

	// Subsystem is the metrics subsystem (default: "http").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "filemux",
		Subsystem: "http",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the request metrics of a gateway.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewMetrics registers the request metrics. Each call registers a new set,
// so a registry accepts it once.
//
// Metrics collected:
//   - filemux_http_requests_total: requests by pattern, method and status
//   - filemux_http_request_duration_seconds: latency by pattern and method
//   - filemux_http_response_size_bytes: response sizes by pattern
//   - filemux_http_requests_in_flight: requests being served
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of requests by route pattern",
			ConstLabels: config.ConstLabels,
		}, []string{"pattern", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"pattern", "method"}),

		responseSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "response_size_bytes",
			Help:        "Response body size in bytes",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{100, 1000, 10000, 100000, 1000000},
		}, []string{"pattern"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_in_flight",
			Help:        "Number of requests currently being served",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Middleware records metrics for requests served by next. Requests are
// labelled with the route pattern the gateway resolved, never the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, info := gateway.Annotate(r)
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		m.inFlight.Inc()
		start := time.Now()
		defer func() {
			m.inFlight.Dec()

			pattern := info.Pattern
			if pattern == "" {
				pattern = unmatchedPattern
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.requestDuration.WithLabelValues(pattern, r.Method).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(pattern, r.Method, strconv.Itoa(status)).Inc()
			m.responseSize.WithLabelValues(pattern).Observe(float64(ww.BytesWritten()))
		}()

		next.ServeHTTP(ww, r)
	})
}

// Prometheus creates middleware that collects request metrics.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Handle("/metrics", promhttp.Handler())
//	r.Handle("/*", middleware.Prometheus()(gw))
func Prometheus(opts ...MetricsOption) func(http.Handler) http.Handler {
	return NewMetrics(opts...).Middleware
}
