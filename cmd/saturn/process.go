package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/telemetry/logging"
)

var processFlags struct {
	file   string
	output string
}

// processOutcome is one line of process command output.
type processOutcome struct {
	TransactionID string  `json:"transaction_id,omitempty"`
	Vendor        string  `json:"vendor"`
	Amount        float64 `json:"amount"`
	RiskScore     int     `json:"risk_score,omitempty"`
	RiskLevel     string  `json:"risk_level,omitempty"`
	Decision      string  `json:"decision,omitempty"`
	Error         string  `json:"error,omitempty"`
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process transactions from a JSON file",
	Long: `Process transactions from a JSON file through the compliance pipeline.

The file contains a JSON array of invoices. Each invoice is validated,
scored, evaluated against policy, decided, and persisted with its audit
trail. Invalid invoices are reported and skipped.

Examples:
  # Process a batch of transactions
  saturn process --file transactions.json

  # JSON output for scripting
  saturn process --file transactions.json --output json`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&processFlags.file, "file", "f", "", "JSON file with an array of invoices (required)")
	processCmd.Flags().StringVarP(&processFlags.output, "output", "o", "text", "output format (text, json)")
	processCmd.MarkFlagRequired("file")
}

func runProcess(cmd *cobra.Command, args []string) error {
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

	data, err := os.ReadFile(processFlags.file)
	if err != nil {
		return cli.NewCommandError("process", fmt.Errorf("failed to read %s: %w", processFlags.file, err))
	}
	var invoices []compliance.Invoice
	if err := json.Unmarshal(data, &invoices); err != nil {
		return cli.NewCommandError("process", fmt.Errorf("failed to parse %s: %w", processFlags.file, err))
	}

	a, err := buildApp(cfg)
	if err != nil {
		return cli.NewCommandError("process", err)
	}
	defer a.Close()

	ctx := cli.SetupSignalHandler()

	outcomes := make([]processOutcome, 0, len(invoices))
	for i := range invoices {
		inv := invoices[i]
		outcome := processOutcome{Vendor: inv.Vendor, Amount: inv.Amount}

		result, err := a.service.Submit(ctx, &inv)
		if err != nil {
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}

		outcome.TransactionID = result.TransactionID
		outcome.RiskScore = result.RiskScore
		outcome.RiskLevel = string(result.RiskLevel)
		outcome.Decision = string(result.Decision)
		outcomes = append(outcomes, outcome)
	}

	if processFlags.output == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, outcomes)
	}

	for _, o := range outcomes {
		if o.Error != "" {
			fmt.Printf("✗ %-24s $%10.2f  rejected: %s\n", o.Vendor, o.Amount, o.Error)
			continue
		}
		fmt.Printf("✓ %-24s $%10.2f  risk=%-6s score=%3d  %s  (%s)\n",
			o.Vendor, o.Amount, o.RiskLevel, o.RiskScore, o.Decision, o.TransactionID)
	}
	fmt.Printf("\nProcessed %d transactions\n", len(outcomes))
	return nil
}
