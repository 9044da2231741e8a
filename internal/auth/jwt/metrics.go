package jwt

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for token validation.
type Metrics struct {
	validationTotal    *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "edgegw"
	}

	return &Metrics{
		validationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jwt",
				Name:      "validation_total",
				Help:      "Total number of token validations by outcome",
			},
			[]string{"outcome", "reason"},
		),
		validationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "jwt",
				Name:      "validation_duration_seconds",
				Help:      "Token validation duration in seconds",
				Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05},
			},
			[]string{"outcome"},
		),
	}
}

// Init pre-initializes the outcome series so they are exported at zero.
func (m *Metrics) Init() {
	for _, kind := range []OutcomeKind{OutcomeSuccess, OutcomeExpired, OutcomeInvalid} {
		m.validationDuration.WithLabelValues(kind.String())
	}
	m.validationTotal.WithLabelValues(OutcomeSuccess.String(), "none")
	m.validationTotal.WithLabelValues(OutcomeExpired.String(), "expired")
}

// RecordValidation records one validation.
func (m *Metrics) RecordValidation(outcome Outcome, duration time.Duration) {
	m.validationTotal.WithLabelValues(outcome.Kind.String(), reasonLabel(outcome.Reason)).Inc()
	if duration > 0 {
		m.validationDuration.WithLabelValues(outcome.Kind.String()).Observe(duration.Seconds())
	}
}

// MustRegister registers the metrics with the given registry. Collectors
// that are already registered are ignored.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	for _, c := range []prometheus.Collector{m.validationTotal, m.validationDuration} {
		if err := registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

// reasonLabel returns a bounded label value for a failure reason.
func reasonLabel(reason error) string {
	switch {
	case reason == nil:
		return "none"
	case errors.Is(reason, ErrTokenExpired):
		return "expired"
	case errors.Is(reason, ErrTokenMalformed):
		return "malformed"
	case errors.Is(reason, ErrTokenInvalidSignature):
		return "signature"
	case errors.Is(reason, ErrTokenInvalidIssuer):
		return "issuer"
	case errors.Is(reason, ErrTokenInvalidAudience):
		return "audience"
	case errors.Is(reason, ErrTokenNotYetValid):
		return "not_yet_valid"
	case errors.Is(reason, ErrTokenMissingClaim):
		return "missing_claim"
	case errors.Is(reason, ErrMissingToken):
		return "missing_token"
	case errors.Is(reason, ErrInsecureTransport):
		return "insecure_transport"
	default:
		return "unknown"
	}
}
