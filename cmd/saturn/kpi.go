package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/telemetry/logging"
)

var kpiFlags struct {
	bucket string
	output string
}

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Show KPI snapshot for a day",
	Long: `Show the KPI snapshot for a UTC calendar day.

Indicators:
  - Human correction rate: share of decisions a human overrode
  - Context retention score: share of learned-rule decisions that stood
  - Auto-approval rate: share of transactions approved without a human
  - Audit completeness: share of transactions with a complete trail

Examples:
  # Current day
  saturn kpi

  # Specific day
  saturn kpi --bucket 2026-08-29

  # JSON output
  saturn kpi --bucket 2026-08-29 --output json`,
	RunE: runKPI,
}

func init() {
	rootCmd.AddCommand(kpiCmd)

	kpiCmd.Flags().StringVarP(&kpiFlags.bucket, "bucket", "b", "", "UTC day bucket (YYYY-MM-DD, default today)")
	kpiCmd.Flags().StringVarP(&kpiFlags.output, "output", "o", "text", "output format (text, json)")
}

func runKPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := logging.Setup(cfg.Telemetry.Logging); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	a, err := buildApp(cfg)
	if err != nil {
		return cli.NewCommandError("kpi", err)
	}
	defer a.Close()

	ctx := cli.SetupSignalHandler()

	snap, err := a.service.GetKPIs(ctx, kpiFlags.bucket)
	if err != nil {
		return cli.NewCommandError("kpi", err)
	}

	if kpiFlags.output == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, snap)
	}

	fmt.Printf("KPI snapshot for %s (computed %s)\n\n", snap.Bucket, snap.ComputedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("  Transactions:            %d\n", snap.TotalTransactions)
	fmt.Printf("  Human corrections:       %d\n", snap.HumanCorrections)
	fmt.Printf("  Human correction rate:   %.1f%%\n", snap.HumanCorrectionRate)
	fmt.Printf("  Context retention score: %.1f%%\n", snap.ContextRetentionScore)
	fmt.Printf("  Auto-approval rate:      %.1f%%\n", snap.AutoApprovalRate)
	fmt.Printf("  Audit completeness:      %.1f%%\n", snap.AuditCompleteness)
	return nil
}
