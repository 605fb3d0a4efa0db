package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/policy/corpus"
)

var validateFlags struct {
	checkCorpus bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the configuration file without starting the engine.

Checks that weights sum correctly, thresholds are ordered, the cron
schedule parses, and the oracle endpoint is configured. With --corpus the
policy corpus directory is also loaded and malformed documents reported.

Examples:
  # Validate the default config
  saturn validate

  # Validate a specific config and the corpus it points at
  saturn validate --config /etc/saturn/config.yaml --corpus`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.checkCorpus, "corpus", false, "also load and check the policy corpus")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("validation failed: %v", err))
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  Workers:              %d\n", cfg.Engine.Workers)
	fmt.Printf("  Confidence threshold: %.2f\n", cfg.Engine.ConfidenceThreshold)
	fmt.Printf("  Risk weights:         amount=%d reputation=%d po=%d international=%d\n",
		cfg.Risk.AmountWeight, cfg.Risk.ReputationWeight, cfg.Risk.POWeight, cfg.Risk.InternationalWeight)
	if cfg.Oracle.Stub {
		fmt.Println("  Oracle:               stub")
	} else {
		fmt.Printf("  Oracle:               %s\n", cfg.Oracle.BaseURL)
	}

	if validateFlags.checkCorpus {
		c, err := corpus.Load(cfg.Corpus.Path)
		if err != nil {
			return cli.NewConfigError("corpus.path", err.Error())
		}
		fmt.Printf("✓ Policy corpus loaded (%d documents)\n", c.Size())
	}

	return nil
}
