package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/saturn/pkg/config"
)

// OracleMetrics tracks metrics for decision oracle calls.
//
// Metrics:
//   - mercator_saturn_oracle_calls_total: Oracle calls by kind and outcome
//   - mercator_saturn_oracle_call_duration_seconds: Oracle round-trip duration
//   - mercator_saturn_oracle_degradations_total: Verdicts degraded to uncertain
type OracleMetrics struct {
	callsTotal        *prometheus.CounterVec
	callDuration      *prometheus.HistogramVec
	degradationsTotal *prometheus.CounterVec
}

// NewOracleMetrics creates and registers oracle metrics with the provided registry.
func NewOracleMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *OracleMetrics {
	om := &OracleMetrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "oracle_calls_total",
				Help:      "Total oracle calls by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "oracle_call_duration_seconds",
				Help:      "Oracle round-trip duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"kind"},
		),
		degradationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "oracle_degradations_total",
				Help:      "Total verdicts degraded to uncertain by failure reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(om.callsTotal, om.callDuration, om.degradationsTotal)

	return om
}

// RecordCall records a completed oracle call.
// Kind is "judgment" or "classification"; outcome is "ok", "unavailable",
// or "malformed".
func (om *OracleMetrics) RecordCall(kind, outcome string, duration time.Duration) {
	if om == nil {
		return
	}
	om.callsTotal.WithLabelValues(kind, outcome).Inc()
	om.callDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordDegradation records a verdict forced to uncertain.
func (om *OracleMetrics) RecordDegradation(reason string) {
	if om == nil {
		return
	}
	om.degradationsTotal.WithLabelValues(reason).Inc()
}
