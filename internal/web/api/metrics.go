package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wpkernel/wpkgen/internal/build"
)

// Metrics are the prometheus collectors of the compile service. They are
// registered on their own registry so several services can coexist in one
// process.
type Metrics struct {
	Registry  *prometheus.Registry
	builds    *prometheus.CounterVec
	failures  prometheus.Counter
	duration  prometheus.Histogram
	warnings  *prometheus.CounterVec
	fallbacks prometheus.Counter
}

// NewMetrics creates and registers the collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wpkgen",
			Name:      "builds_total",
			Help:      "Finished plan builds.",
		}, []string{"cached"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wpkgen",
			Name:      "build_failures_total",
			Help:      "Plan builds rejected with an error.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wpkgen",
			Name:      "build_duration_seconds",
			Help:      "Wall time of plan builds, cache hits included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wpkgen",
			Name:      "warnings_total",
			Help:      "Warnings raised by plan builds.",
		}, []string{"kind"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wpkgen",
			Name:      "fallback_routes_total",
			Help:      "Routes generated as not-implemented stubs.",
		}),
	}
	m.Registry.MustRegister(m.builds, m.failures, m.duration, m.warnings, m.fallbacks)
	return m
}

// Observe implements build.Observer
func (m *Metrics) Observe(res *build.Result) {
	m.builds.WithLabelValues(strconv.FormatBool(res.Cached)).Inc()
	m.duration.Observe(res.Duration.Seconds())
	for _, w := range res.Artifact.Warnings {
		m.warnings.WithLabelValues(string(w.Kind)).Inc()
	}
	m.fallbacks.Add(float64(len(res.Artifact.Fallbacks)))
}

func (m *Metrics) failed() {
	m.failures.Inc()
}
