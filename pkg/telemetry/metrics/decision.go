package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/saturn/pkg/config"
)

// DecisionMetrics tracks metrics for the orchestrating state machine.
//
// Metrics:
//   - mercator_saturn_decisions_total: Final decisions by outcome and risk level
//   - mercator_saturn_pipeline_duration_seconds: End-to-end pipeline duration
//   - mercator_saturn_pipeline_faults_total: State handler faults by state
//   - mercator_saturn_validation_rejects_total: Payloads rejected before the pipeline
type DecisionMetrics struct {
	decisionsTotal   *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	faultsTotal      *prometheus.CounterVec
	validationTotal  prometheus.Counter
}

// NewDecisionMetrics creates and registers decision metrics with the provided registry.
func NewDecisionMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Total final decisions by outcome and risk level",
			},
			[]string{"decision", "risk_level"},
		),
		pipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pipeline_duration_seconds",
				Help:      "End-to-end compliance pipeline duration in seconds",
				// Dominated by the oracle call (100ms - 30s)
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
		),
		faultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pipeline_faults_total",
				Help:      "Total state handler faults by state",
			},
			[]string{"state"},
		),
		validationTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validation_rejects_total",
				Help:      "Total payloads rejected by intake validation",
			},
		),
	}

	registry.MustRegister(
		dm.decisionsTotal,
		dm.pipelineDuration,
		dm.faultsTotal,
		dm.validationTotal,
	)

	return dm
}

// RecordDecision records a completed pipeline run.
func (dm *DecisionMetrics) RecordDecision(decision, riskLevel string, duration time.Duration) {
	if dm == nil {
		return
	}
	dm.decisionsTotal.WithLabelValues(decision, riskLevel).Inc()
	dm.pipelineDuration.Observe(duration.Seconds())
}

// RecordFault records a state handler fault.
func (dm *DecisionMetrics) RecordFault(state string) {
	if dm == nil {
		return
	}
	dm.faultsTotal.WithLabelValues(state).Inc()
}

// RecordValidationReject records an intake payload rejected before processing.
func (dm *DecisionMetrics) RecordValidationReject() {
	if dm == nil {
		return
	}
	dm.validationTotal.Inc()
}
