package oracle

import (
	"context"

	"mercator-hq/saturn/pkg/compliance"
)

// PolicyPassage is a ranked policy excerpt included in a judgment prompt.
type PolicyPassage struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// JudgmentRequest is the structured compliance-judgment prompt sent to the
// oracle. Simplified marks the bounded retry after a first failure; the
// oracle receives a reduced prompt (no passages, no exception rules) to
// maximize the chance of a parseable answer.
type JudgmentRequest struct {
	TransactionID string                     `json:"transaction_id"`
	Invoice       compliance.Invoice         `json:"invoice"`
	RiskScore     int                        `json:"risk_score"`
	RiskLevel     compliance.RiskLevel       `json:"risk_level"`
	Passages      []PolicyPassage            `json:"passages,omitempty"`
	Exceptions    []compliance.ExceptionRule `json:"exceptions,omitempty"`
	Simplified    bool                       `json:"simplified,omitempty"`
}

// Judgment is the oracle's parsed compliance verdict.
type Judgment struct {
	IsCompliant bool     `json:"is_compliant"`
	Confidence  float64  `json:"confidence"`
	Rationale   string   `json:"rationale"`
	Citations   []string `json:"citations,omitempty"`
}

// ClassificationRequest is the feedback-classification prompt sent to the
// oracle when a human correction arrives.
type ClassificationRequest struct {
	FeedbackID       string              `json:"feedback_id"`
	Invoice          compliance.Invoice  `json:"invoice"`
	OriginalDecision compliance.Decision `json:"original_decision"`
	HumanDecision    compliance.Decision `json:"human_decision"`
	Reasoning        string              `json:"reasoning"`
	ShouldGeneralize bool                `json:"should_generalize"`
	Simplified       bool                `json:"simplified,omitempty"`
}

// Classification is the oracle's parsed feedback classification.
// RuleType is empty for one-off corrections.
type Classification struct {
	ShouldCreateException bool                     `json:"should_create_exception"`
	RuleType              compliance.RuleType      `json:"rule_type,omitempty"`
	Vendor                string                   `json:"vendor,omitempty"`
	Category              string                   `json:"category,omitempty"`
	Description           string                   `json:"description,omitempty"`
	Condition             compliance.RuleCondition `json:"condition,omitempty"`
}

// Oracle is the decision oracle consulted by the policy evaluator and the
// exception manager. Implementations must honor context cancellation and
// return errors from the shared taxonomy so callers can degrade safely.
type Oracle interface {
	// JudgeCompliance evaluates a transaction against policy context and
	// returns a compliance judgment.
	JudgeCompliance(ctx context.Context, req *JudgmentRequest) (*Judgment, error)

	// ClassifyFeedback classifies a human correction into a learned
	// exception (or a one-off).
	ClassifyFeedback(ctx context.Context, req *ClassificationRequest) (*Classification, error)

	// Close releases any resources held by the oracle client.
	Close() error
}
