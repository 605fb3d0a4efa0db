package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "saturn",
	Short: "Mercator Saturn - transaction compliance workflow engine",
	Long: `Mercator Saturn is a transaction compliance workflow engine that scores,
evaluates, and decides financial transactions with a complete audit trail.

Each submitted transaction flows through a state machine:
  - Risk assessment with configurable weights and amount bands
  - Policy evaluation against a searchable policy corpus and learned
    exception rules, judged by an external decision oracle
  - A conservative decision policy (uncertainty always routes to a human)
  - Durable persistence of the decision and its audit trail

Human corrections feed back into an adaptive memory store so the engine
learns vendor-, category-, and threshold-scoped exceptions over time.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
