package dev

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts route table mutations applied by a Watcher.
type Metrics struct {
	mutations *prometheus.CounterVec
	files     prometheus.Gauge
	errors    prometheus.Counter
}

// NewMetrics registers the watcher metrics with reg.
//
// Metrics collected:
//   - <namespace>_router_mutations_total: applied events by type and file kind
//   - <namespace>_router_files: files currently registered
//   - <namespace>_watcher_errors_total: file system notification errors
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "mutations_total",
			Help:      "Route table mutations applied from file system events",
		}, []string{"type", "kind"}),
		files: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "files",
			Help:      "Number of files registered with the router",
		}),
		errors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "errors_total",
			Help:      "File system notification errors",
		}),
	}
}

func (m *Metrics) record(ev Event) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(string(ev.Type), ev.Kind.String()).Inc()
}

func (m *Metrics) setFiles(n int) {
	if m == nil {
		return
	}
	m.files.Set(float64(n))
}

func (m *Metrics) recordError() {
	if m == nil {
		return
	}
	m.errors.Inc()
}
