package main

import (
	"fmt"
	"log/slog"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/engine"
	"mercator-hq/saturn/pkg/feedback"
	"mercator-hq/saturn/pkg/kpi"
	"mercator-hq/saturn/pkg/memory"
	"mercator-hq/saturn/pkg/oracle"
	"mercator-hq/saturn/pkg/policy"
	"mercator-hq/saturn/pkg/policy/corpus"
	"mercator-hq/saturn/pkg/risk"
	"mercator-hq/saturn/pkg/store"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// app wires the configured components into a running engine.
type app struct {
	cfg       *config.Config
	collector *metrics.Collector

	ledger   store.Store
	memStore memory.Store
	oracle   oracle.Oracle
	corpus   *corpus.Corpus

	kpiEngine *kpi.Engine
	service   *engine.Service
}

// buildApp assembles the engine from configuration. The caller owns the
// returned app and must Close it.
func buildApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.Telemetry.Metrics.Enabled {
		a.collector = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	}

	var err error
	if cfg.Storage.InMemory {
		a.ledger = store.NewMemoryStore()
		a.memStore = memory.NewMemoryStore(a.collector.Memory())
	} else {
		a.ledger, err = store.NewSQLiteStore(store.SQLiteConfig{
			Path:         cfg.Storage.TransactionsPath,
			MaxOpenConns: cfg.Storage.MaxOpenConns,
			MaxIdleConns: cfg.Storage.MaxIdleConns,
			BusyTimeout:  cfg.Storage.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open transaction store: %w", err)
		}

		a.memStore, err = memory.NewSQLiteStore(memory.SQLiteConfig{
			Path:         cfg.Storage.MemoryPath,
			MaxOpenConns: cfg.Storage.MaxOpenConns,
			MaxIdleConns: cfg.Storage.MaxIdleConns,
			BusyTimeout:  cfg.Storage.BusyTimeout,
		}, a.collector.Memory())
		if err != nil {
			a.ledger.Close()
			return nil, fmt.Errorf("failed to open memory store: %w", err)
		}
	}

	if cfg.Oracle.Stub {
		a.oracle = oracle.NewStubOracle()
	} else {
		a.oracle, err = oracle.NewHTTPOracle(cfg.Oracle, a.collector.Oracle())
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("failed to create oracle client: %w", err)
		}
	}

	// A missing corpus directory is survivable: evaluation proceeds without
	// policy passages and the oracle judges on invoice context alone.
	a.corpus, err = corpus.Load(cfg.Corpus.Path)
	if err != nil {
		slog.Warn("policy corpus unavailable, evaluating without passages",
			"path", cfg.Corpus.Path,
			"error", err,
		)
		a.corpus = nil
	}

	assessor := risk.NewAssessor(cfg.Risk)
	evaluator := policy.NewEvaluator(
		a.corpus, a.memStore, a.oracle,
		cfg.Corpus.TopK, cfg.Oracle.MaxRetries,
		a.collector.Oracle(),
	)
	pipeline := engine.NewPipeline(
		assessor, evaluator, a.ledger, a.memStore,
		cfg.Engine.ConfidenceThreshold, cfg.Engine.PolicyRetryLimit,
		a.collector.Decision(),
	)
	pool := engine.NewPool(pipeline, cfg.Engine.Workers, cfg.Engine.QueueSize)

	a.kpiEngine = kpi.NewEngine(a.ledger, a.collector.KPI())
	manager := feedback.NewManager(
		a.ledger, a.memStore, a.oracle, a.kpiEngine,
		cfg.Oracle.MaxRetries,
	)

	a.service = engine.NewService(pool, manager, a.kpiEngine, a.ledger, a.collector.Decision())
	return a, nil
}

// Close drains in-flight work and releases all resources.
func (a *app) Close() {
	if a.service != nil {
		a.service.Close()
	}
	if a.oracle != nil {
		a.oracle.Close()
	}
	a.closeStores()
}

func (a *app) closeStores() {
	if a.memStore != nil {
		if err := a.memStore.Close(); err != nil {
			slog.Warn("failed to close memory store", "error", err)
		}
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			slog.Warn("failed to close transaction store", "error", err)
		}
	}
}
