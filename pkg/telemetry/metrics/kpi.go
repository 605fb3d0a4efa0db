package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/saturn/pkg/config"
)

// KPIMetrics exposes the latest computed KPI snapshot as gauges.
//
// Metrics:
//   - mercator_saturn_kpi_human_correction_rate: H-CR of the latest bucket
//   - mercator_saturn_kpi_context_retention_score: CRS of the latest bucket
//   - mercator_saturn_kpi_auto_approval_rate: ATAR of the latest bucket
//   - mercator_saturn_kpi_audit_completeness: Audit completeness of the latest bucket
//   - mercator_saturn_kpi_recomputations_total: Bucket recomputations
type KPIMetrics struct {
	humanCorrectionRate prometheus.Gauge
	contextRetention    prometheus.Gauge
	autoApprovalRate    prometheus.Gauge
	auditCompleteness   prometheus.Gauge
	recomputationsTotal prometheus.Counter
}

// NewKPIMetrics creates and registers KPI metrics with the provided registry.
func NewKPIMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *KPIMetrics {
	km := &KPIMetrics{
		humanCorrectionRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "kpi_human_correction_rate",
			Help:      "Human correction rate (percent) of the latest computed bucket",
		}),
		contextRetention: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "kpi_context_retention_score",
			Help:      "Context retention score (percent) of the latest computed bucket",
		}),
		autoApprovalRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "kpi_auto_approval_rate",
			Help:      "Automated approval rate (percent) of the latest computed bucket",
		}),
		auditCompleteness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "kpi_audit_completeness",
			Help:      "Audit trail completeness (percent) of the latest computed bucket",
		}),
		recomputationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "kpi_recomputations_total",
			Help:      "Total KPI bucket recomputations",
		}),
	}

	registry.MustRegister(
		km.humanCorrectionRate,
		km.contextRetention,
		km.autoApprovalRate,
		km.auditCompleteness,
		km.recomputationsTotal,
	)

	return km
}

// RecordSnapshot publishes the latest snapshot values.
func (km *KPIMetrics) RecordSnapshot(hcr, crs, atar, completeness float64) {
	if km == nil {
		return
	}
	km.humanCorrectionRate.Set(hcr)
	km.contextRetention.Set(crs)
	km.autoApprovalRate.Set(atar)
	km.auditCompleteness.Set(completeness)
	km.recomputationsTotal.Inc()
}
