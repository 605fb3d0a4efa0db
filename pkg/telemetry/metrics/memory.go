package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/saturn/pkg/config"
)

// MemoryMetrics tracks metrics for the adaptive memory store.
//
// Metrics:
//   - mercator_saturn_memory_lookups_total: Rule lookups by hit/miss
//   - mercator_saturn_memory_upserts_total: Rule upserts by insert/refresh
//   - mercator_saturn_memory_usage_records_total: Usage records by success
//   - mercator_saturn_memory_write_conflicts_total: Optimistic write conflicts
type MemoryMetrics struct {
	lookupsTotal   *prometheus.CounterVec
	upsertsTotal   *prometheus.CounterVec
	usageTotal     *prometheus.CounterVec
	conflictsTotal prometheus.Counter
}

// NewMemoryMetrics creates and registers memory metrics with the provided registry.
func NewMemoryMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *MemoryMetrics {
	mm := &MemoryMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "memory_lookups_total",
				Help:      "Total adaptive memory lookups by result",
			},
			[]string{"result"},
		),
		upsertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "memory_upserts_total",
				Help:      "Total exception rule upserts by kind",
			},
			[]string{"kind"},
		),
		usageTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "memory_usage_records_total",
				Help:      "Total rule usage records by success",
			},
			[]string{"success"},
		),
		conflictsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "memory_write_conflicts_total",
				Help:      "Total optimistic write conflicts on rule usage updates",
			},
		),
	}

	registry.MustRegister(mm.lookupsTotal, mm.upsertsTotal, mm.usageTotal, mm.conflictsTotal)

	return mm
}

// RecordLookup records a memory lookup. Result is "hit" or "miss".
func (mm *MemoryMetrics) RecordLookup(result string) {
	if mm == nil {
		return
	}
	mm.lookupsTotal.WithLabelValues(result).Inc()
}

// RecordUpsert records an exception rule upsert. Kind is "insert" or "refresh".
func (mm *MemoryMetrics) RecordUpsert(kind string) {
	if mm == nil {
		return
	}
	mm.upsertsTotal.WithLabelValues(kind).Inc()
}

// RecordUsage records a rule usage update.
func (mm *MemoryMetrics) RecordUsage(success bool) {
	if mm == nil {
		return
	}
	label := "false"
	if success {
		label = "true"
	}
	mm.usageTotal.WithLabelValues(label).Inc()
}

// RecordWriteConflict records a lost optimistic write race.
func (mm *MemoryMetrics) RecordWriteConflict() {
	if mm == nil {
		return
	}
	mm.conflictsTotal.Inc()
}
