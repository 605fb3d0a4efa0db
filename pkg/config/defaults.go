package config

import "time"

// ApplyDefaults fills in default values for any unset configuration fields.
// It is called automatically by LoadConfig before validation.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = 4
	}
	if cfg.Engine.QueueSize == 0 {
		cfg.Engine.QueueSize = 64
	}
	if cfg.Engine.ConfidenceThreshold == 0 {
		cfg.Engine.ConfidenceThreshold = 0.75
	}
	if cfg.Engine.PolicyRetryLimit == 0 {
		cfg.Engine.PolicyRetryLimit = 1
	}

	// Risk defaults
	if cfg.Risk.AmountWeight == 0 && cfg.Risk.ReputationWeight == 0 &&
		cfg.Risk.POWeight == 0 && cfg.Risk.InternationalWeight == 0 {
		cfg.Risk.AmountWeight = 45
		cfg.Risk.ReputationWeight = 25
		cfg.Risk.POWeight = 20
		cfg.Risk.InternationalWeight = 10
	}
	if cfg.Risk.MediumThreshold == 0 {
		cfg.Risk.MediumThreshold = 35
	}
	if cfg.Risk.HighThreshold == 0 {
		cfg.Risk.HighThreshold = 65
	}
	if len(cfg.Risk.AmountBands) == 0 {
		cfg.Risk.AmountBands = []float64{500, 5000, 25000}
	}

	// Oracle defaults
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = 30 * time.Second
	}
	if cfg.Oracle.MaxRetries == 0 {
		cfg.Oracle.MaxRetries = 1
	}
	if cfg.Oracle.MaxIdleConns == 0 {
		cfg.Oracle.MaxIdleConns = 20
	}

	// Corpus defaults
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "policies"
	}
	if cfg.Corpus.TopK == 0 {
		cfg.Corpus.TopK = 5
	}
	if cfg.Corpus.DebounceInterval == 0 {
		cfg.Corpus.DebounceInterval = 200 * time.Millisecond
	}

	// Storage defaults
	if cfg.Storage.TransactionsPath == "" {
		cfg.Storage.TransactionsPath = "data/transactions.db"
	}
	if cfg.Storage.MemoryPath == "" {
		cfg.Storage.MemoryPath = "data/memory.db"
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = 10
	}
	if cfg.Storage.MaxIdleConns == 0 {
		cfg.Storage.MaxIdleConns = 5
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = 5 * time.Second
	}

	// KPI defaults
	if cfg.KPI.RecomputeSchedule == "" {
		cfg.KPI.RecomputeSchedule = "0 * * * *"
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = "127.0.0.1:9090"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "mercator"
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = "saturn"
	}
}

// DefaultConfig returns a configuration populated entirely with defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}
