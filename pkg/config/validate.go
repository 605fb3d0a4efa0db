package config

import (
	"fmt"
	"sort"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns the first error encountered.
func Validate(cfg *Config) error {
	// Engine
	if cfg.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be at least 1, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.QueueSize < 1 {
		return fmt.Errorf("engine.queue_size must be at least 1, got %d", cfg.Engine.QueueSize)
	}
	if cfg.Engine.ConfidenceThreshold < 0 || cfg.Engine.ConfidenceThreshold > 1 {
		return fmt.Errorf("engine.confidence_threshold must be within [0,1], got %v", cfg.Engine.ConfidenceThreshold)
	}
	if cfg.Engine.PolicyRetryLimit < 0 {
		return fmt.Errorf("engine.policy_retry_limit must not be negative, got %d", cfg.Engine.PolicyRetryLimit)
	}

	// Risk
	sum := cfg.Risk.AmountWeight + cfg.Risk.ReputationWeight +
		cfg.Risk.POWeight + cfg.Risk.InternationalWeight
	if sum != 100 {
		return fmt.Errorf("risk weights must sum to 100, got %d", sum)
	}
	if cfg.Risk.MediumThreshold <= 0 || cfg.Risk.HighThreshold <= cfg.Risk.MediumThreshold {
		return fmt.Errorf("risk thresholds must satisfy 0 < medium (%d) < high (%d)",
			cfg.Risk.MediumThreshold, cfg.Risk.HighThreshold)
	}
	if cfg.Risk.HighThreshold > 100 {
		return fmt.Errorf("risk.high_threshold must not exceed 100, got %d", cfg.Risk.HighThreshold)
	}
	if !sort.Float64sAreSorted(cfg.Risk.AmountBands) {
		return fmt.Errorf("risk.amount_bands must be in ascending order")
	}

	// Oracle
	if !cfg.Oracle.Stub && cfg.Oracle.BaseURL == "" {
		return fmt.Errorf("oracle.base_url is required unless oracle.stub is enabled")
	}
	if cfg.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle.timeout must be positive, got %v", cfg.Oracle.Timeout)
	}
	if cfg.Oracle.MaxRetries < 0 {
		return fmt.Errorf("oracle.max_retries must not be negative, got %d", cfg.Oracle.MaxRetries)
	}

	// Corpus
	if cfg.Corpus.TopK < 1 {
		return fmt.Errorf("corpus.top_k must be at least 1, got %d", cfg.Corpus.TopK)
	}

	// Storage
	if !cfg.Storage.InMemory {
		if cfg.Storage.TransactionsPath == "" {
			return fmt.Errorf("storage.transactions_path is required")
		}
		if cfg.Storage.MemoryPath == "" {
			return fmt.Errorf("storage.memory_path is required")
		}
	}

	// KPI
	if cfg.KPI.RecomputeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.KPI.RecomputeSchedule); err != nil {
			return fmt.Errorf("invalid kpi.recompute_schedule %q: %w", cfg.KPI.RecomputeSchedule, err)
		}
	}

	// Telemetry
	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid telemetry.logging.level %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid telemetry.logging.format %q", cfg.Telemetry.Logging.Format)
	}

	return nil
}
