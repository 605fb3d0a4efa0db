package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/feedback"
	"mercator-hq/saturn/pkg/telemetry/logging"
)

var feedbackFlags struct {
	feedbackID    string
	transactionID string
	decision      string
	reasoning     string
	generalize    bool
	output        string
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record a human correction for a decided transaction",
	Long: `Record a human correction for a decided transaction.

The correction overrides the transaction's decision. When --generalize is
set, the correction is classified and may become a learned exception rule
applied to future transactions of the same vendor, category, or amount
range.

Examples:
  # Approve a transaction that was routed to review
  saturn feedback --transaction 4f7c... --decision APPROVED \
    --reasoning "Annual license renewal, pre-approved by finance" --generalize

  # One-off rejection
  saturn feedback --transaction 4f7c... --decision REJECTED \
    --reasoning "Duplicate invoice"`,
	RunE: runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)

	feedbackCmd.Flags().StringVar(&feedbackFlags.feedbackID, "id", "", "feedback id for idempotent resubmission")
	feedbackCmd.Flags().StringVarP(&feedbackFlags.transactionID, "transaction", "t", "", "transaction id (required)")
	feedbackCmd.Flags().StringVarP(&feedbackFlags.decision, "decision", "d", "", "corrected decision: APPROVED, REJECTED, PENDING_HUMAN_REVIEW (required)")
	feedbackCmd.Flags().StringVarP(&feedbackFlags.reasoning, "reasoning", "r", "", "why the original decision was wrong")
	feedbackCmd.Flags().BoolVarP(&feedbackFlags.generalize, "generalize", "g", false, "attempt to learn an exception rule from this correction")
	feedbackCmd.Flags().StringVarP(&feedbackFlags.output, "output", "o", "text", "output format (text, json)")
	feedbackCmd.MarkFlagRequired("transaction")
	feedbackCmd.MarkFlagRequired("decision")
}

func runFeedback(cmd *cobra.Command, args []string) error {
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
		return cli.NewCommandError("feedback", err)
	}
	defer a.Close()

	ctx := cli.SetupSignalHandler()

	result, err := a.service.SubmitFeedback(ctx, &feedback.Submission{
		FeedbackID:       feedbackFlags.feedbackID,
		TransactionID:    feedbackFlags.transactionID,
		HumanDecision:    compliance.Decision(feedbackFlags.decision),
		Reasoning:        feedbackFlags.reasoning,
		ShouldGeneralize: feedbackFlags.generalize,
	})
	if err != nil {
		return cli.NewCommandError("feedback", err)
	}

	if feedbackFlags.output == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, result)
	}

	if result.Duplicate {
		fmt.Printf("✓ Feedback already recorded (%s)\n", result.FeedbackID)
	} else {
		fmt.Printf("✓ Feedback recorded (%s)\n", result.FeedbackID)
	}
	fmt.Printf("  Transaction: %s\n", result.TransactionID)
	fmt.Printf("  Decision:    %s\n", result.Decision)
	if result.ExceptionID != "" {
		fmt.Printf("  Exception:   %s\n", result.ExceptionID)
	}
	return nil
}
