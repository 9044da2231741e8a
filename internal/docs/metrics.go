package docs

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for documentation requests.
type Metrics struct {
	rewriteTotal  *prometheus.CounterVec
	fetchTotal    *prometheus.CounterVec
	fetchDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "edgegw"
	}

	return &Metrics{
		rewriteTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "docs",
				Name:      "rewrite_total",
				Help:      "Total number of document rewrites by result",
			},
			[]string{"result"},
		),
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "docs",
				Name:      "fetch_total",
				Help:      "Total number of downstream document fetches by result",
			},
			[]string{"result"},
		),
		fetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "docs",
				Name:      "fetch_duration_seconds",
				Help:      "Downstream document fetch duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
	}
}

// RecordRewrite records a rewrite result.
func (m *Metrics) RecordRewrite(err error) {
	m.rewriteTotal.WithLabelValues(resultLabel(err)).Inc()
}

// RecordFetch records a fetch result.
func (m *Metrics) RecordFetch(err error, duration time.Duration) {
	m.fetchTotal.WithLabelValues(resultLabel(err)).Inc()
	m.fetchDuration.Observe(duration.Seconds())
}

// MustRegister registers the metrics with the given registry. Collectors
// that are already registered are ignored.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	for _, c := range []prometheus.Collector{m.rewriteTotal, m.fetchTotal, m.fetchDuration} {
		if err := registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMalformedInput):
		return "malformed"
	case errors.Is(err, ErrTransformFailed):
		return "transform_failed"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	default:
		return "error"
	}
}
