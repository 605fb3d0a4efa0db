package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/saturn/pkg/config"
)

// Collector is the orchestrator for all Prometheus metrics in Saturn.
// It manages metric registration and provides a unified interface for
// recording metrics across pipeline components.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	decision *DecisionMetrics
	oracle   *OracleMetrics
	memory   *MemoryMetrics
	kpi      *KPIMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "mercator"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "saturn"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.decision = NewDecisionMetrics(cfg, registry)
	c.oracle = NewOracleMetrics(cfg, registry)
	c.memory = NewMemoryMetrics(cfg, registry)
	c.kpi = NewKPIMetrics(cfg, registry)

	return c
}

// Registry returns the underlying Prometheus registry for exposition.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Decision returns the pipeline decision metrics. Nil-safe.
func (c *Collector) Decision() *DecisionMetrics {
	if c == nil {
		return nil
	}
	return c.decision
}

// Oracle returns the oracle call metrics. Nil-safe.
func (c *Collector) Oracle() *OracleMetrics {
	if c == nil {
		return nil
	}
	return c.oracle
}

// Memory returns the adaptive memory metrics. Nil-safe.
func (c *Collector) Memory() *MemoryMetrics {
	if c == nil {
		return nil
	}
	return c.memory
}

// KPI returns the KPI snapshot metrics. Nil-safe.
func (c *Collector) KPI() *KPIMetrics {
	if c == nil {
		return nil
	}
	return c.kpi
}
