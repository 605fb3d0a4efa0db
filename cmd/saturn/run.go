package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/kpi"
	"mercator-hq/saturn/pkg/policy/corpus"
	"mercator-hq/saturn/pkg/telemetry/logging"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Saturn compliance engine",
	Long: `Start the Saturn compliance engine with the specified configuration.

The engine starts its worker pool, the metrics endpoint, the policy corpus
watcher (if enabled), and the scheduled KPI recomputation, then waits for
shutdown.

Examples:
  # Start with default config
  saturn run

  # Start with custom config
  saturn run --config /etc/saturn/config.yaml

  # Validate config without starting the engine
  saturn run --dry-run`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the engine")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := logging.Setup(cfg.Telemetry.Logging); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Mercator Saturn v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	a, err := buildApp(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.Close()

	fmt.Printf("✓ Engine started (%d workers)\n", cfg.Engine.Workers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Corpus hot reload
	var watcher *corpus.Watcher
	if cfg.Corpus.Watch && a.corpus != nil {
		watcher, err = corpus.NewWatcher(a.corpus, cfg.Corpus.DebounceInterval)
		if err != nil {
			slog.Warn("failed to create corpus watcher", "error", err)
		} else if err := watcher.Start(ctx); err != nil {
			slog.Warn("failed to start corpus watcher", "error", err)
		} else {
			defer watcher.Stop()
			fmt.Printf("✓ Corpus watcher started (%s)\n", cfg.Corpus.Path)
		}
	}

	// Scheduled KPI recomputation
	scheduler := kpi.NewScheduler(a.kpiEngine, cfg.KPI.RecomputeSchedule)
	if err := scheduler.Start(ctx); err != nil {
		slog.Warn("failed to start kpi scheduler", "error", err)
	} else {
		defer scheduler.Stop()
		if next := scheduler.NextRun(); next != nil {
			slog.Debug("kpi scheduler started", "next_run", next)
		}
	}

	// Metrics endpoint
	var metricsSrv *http.Server
	if cfg.Telemetry.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.collector.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.Telemetry.Metrics.ListenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("metrics endpoint listening", "address", cfg.Telemetry.Metrics.ListenAddress)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics endpoint failed", "error", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Telemetry.Metrics.ListenAddress)
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sig := cli.WaitForShutdown(ctx)
	fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
	cancel()

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics endpoint shutdown failed", "error", err)
		}
	}

	fmt.Println("✓ Engine stopped")
	return nil
}
