package config

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for configuration reloads.
type Metrics struct {
	reloadTotal       *prometheus.CounterVec
	lastReloadSuccess prometheus.Gauge
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "edgegw"
	}

	return &Metrics{
		reloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "config",
				Name:      "reload_total",
				Help:      "Total number of configuration reload attempts",
			},
			[]string{"result"},
		),
		lastReloadSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "config",
				Name:      "last_reload_success_timestamp_seconds",
				Help:      "Unix time of the last successful configuration reload",
			},
		),
	}
}

// RecordReload records a reload attempt.
func (m *Metrics) RecordReload(err error) {
	if err != nil {
		m.reloadTotal.WithLabelValues("error").Inc()
		return
	}
	m.reloadTotal.WithLabelValues("success").Inc()
	m.lastReloadSuccess.SetToCurrentTime()
}

// MustRegister registers the metrics with the given registry. Collectors
// that are already registered are ignored.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	for _, c := range []prometheus.Collector{m.reloadTotal, m.lastReloadSuccess} {
		if err := registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}
