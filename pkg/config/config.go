package config

import "time"

// Config is the root configuration structure for Saturn.
// It contains all configuration sections for the compliance engine, risk
// scoring, the decision oracle, the policy corpus, persistence, KPI
// computation, and telemetry.
type Config struct {
	// Engine contains configuration for the orchestrating state machine and
	// its worker pool.
	Engine EngineConfig `yaml:"engine"`

	// Risk contains the weights and bands used by the risk assessor.
	Risk RiskConfig `yaml:"risk"`

	// Oracle contains configuration for the external decision oracle.
	Oracle OracleConfig `yaml:"oracle"`

	// Corpus contains configuration for the policy corpus used during
	// policy evaluation.
	Corpus CorpusConfig `yaml:"corpus"`

	// Storage contains configuration for the transaction store and the
	// adaptive memory store.
	Storage StorageConfig `yaml:"storage"`

	// KPI contains configuration for KPI snapshot computation.
	KPI KPIConfig `yaml:"kpi"`

	// Telemetry contains observability configuration (logging, metrics).
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains configuration for the orchestrating auditor.
type EngineConfig struct {
	// Workers is the number of concurrent pipeline workers.
	// Default: 4
	Workers int `yaml:"workers"`

	// QueueSize is the bounded task queue capacity. Submissions block while
	// the queue is full.
	// Default: 64
	QueueSize int `yaml:"queue_size"`

	// ConfidenceThreshold is the minimum verdict confidence required for
	// auto-approval of a low-risk compliant transaction.
	// Default: 0.75
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// PolicyRetryLimit is the number of bounded retries permitted at the
	// POLICY_EVALUATED stage before the verdict degrades to uncertain.
	// Default: 1
	PolicyRetryLimit int `yaml:"policy_retry_limit"`
}

// RiskConfig contains the weights and bands for the risk assessor.
// Weights must sum to 100; each contributes that share of the score.
type RiskConfig struct {
	// AmountWeight is the score contribution of the amount band.
	// Default: 45
	AmountWeight int `yaml:"amount_weight"`

	// ReputationWeight is the score contribution of (inverted) vendor
	// reputation.
	// Default: 25
	ReputationWeight int `yaml:"reputation_weight"`

	// POWeight is the score contribution of a missing purchase order.
	// Default: 20
	POWeight int `yaml:"po_weight"`

	// InternationalWeight is the score contribution of the cross-border flag.
	// Default: 10
	InternationalWeight int `yaml:"international_weight"`

	// MediumThreshold is the score at which risk becomes MEDIUM.
	// Default: 35
	MediumThreshold int `yaml:"medium_threshold"`

	// HighThreshold is the score at which risk becomes HIGH.
	// Default: 65
	HighThreshold int `yaml:"high_threshold"`

	// AmountBands are the upper bounds (exclusive) of the amount bands, in
	// ascending order. Amounts above the last bound fall in the top band.
	// Default: [500, 5000, 25000]
	AmountBands []float64 `yaml:"amount_bands"`
}

// OracleConfig contains configuration for the decision oracle client.
type OracleConfig struct {
	// BaseURL is the base URL for the oracle's API endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests to the oracle.
	APIKey string `yaml:"api_key"`

	// Timeout is the per-call timeout for oracle requests.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries after the first failed call.
	// The retry uses a simplified prompt.
	// Default: 1
	MaxRetries int `yaml:"max_retries"`

	// MaxIdleConns is the connection pool size for the HTTP client.
	// Default: 20
	MaxIdleConns int `yaml:"max_idle_conns"`

	// Stub replaces the HTTP client with the deterministic stub oracle.
	// Intended for dry runs and local development.
	Stub bool `yaml:"stub"`
}

// CorpusConfig contains configuration for the policy corpus.
type CorpusConfig struct {
	// Path is the directory containing policy documents (YAML).
	// Default: "policies"
	Path string `yaml:"path"`

	// TopK is the number of ranked passages returned per search.
	// Default: 5
	TopK int `yaml:"top_k"`

	// Watch enables hot reloading of the corpus when files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a reload after a change.
	// Default: 200ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// StorageConfig contains configuration for persistence backends.
type StorageConfig struct {
	// TransactionsPath is the SQLite database file for transactions,
	// feedback records, and KPI snapshots.
	// Default: "data/transactions.db"
	TransactionsPath string `yaml:"transactions_path"`

	// MemoryPath is the SQLite database file for the adaptive memory store.
	// Default: "data/memory.db"
	MemoryPath string `yaml:"memory_path"`

	// MaxOpenConns is the maximum number of open connections per database.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections per database.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// BusyTimeout is the duration to wait when a database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// InMemory replaces both SQLite backends with in-process stores.
	// Intended for tests and dry runs.
	InMemory bool `yaml:"in_memory"`
}

// KPIConfig contains configuration for KPI snapshot computation.
type KPIConfig struct {
	// RecomputeSchedule is a cron expression for scheduled recomputation of
	// the current bucket. Empty disables the scheduler.
	// Default: "0 * * * *" (hourly)
	RecomputeSchedule string `yaml:"recompute_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP endpoint.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Namespace is the Prometheus metric namespace.
	// Default: "mercator"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: "saturn"
	Subsystem string `yaml:"subsystem"`
}
