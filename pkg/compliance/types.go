package compliance

import "time"

// RiskLevel classifies a transaction's assessed risk.
type RiskLevel string

const (
	// RiskLow indicates a low-risk transaction eligible for auto-approval.
	RiskLow RiskLevel = "LOW"
	// RiskMedium indicates a medium-risk transaction.
	RiskMedium RiskLevel = "MEDIUM"
	// RiskHigh indicates a high-risk transaction; never auto-approved.
	RiskHigh RiskLevel = "HIGH"
)

// Decision is the terminal outcome of the compliance pipeline for a transaction.
type Decision string

const (
	// DecisionApproved means the transaction was auto-approved.
	DecisionApproved Decision = "APPROVED"
	// DecisionRejected means the transaction was rejected.
	DecisionRejected Decision = "REJECTED"
	// DecisionPendingReview means a human must review the transaction.
	DecisionPendingReview Decision = "PENDING_HUMAN_REVIEW"
	// DecisionError means the pipeline faulted before a decision was reached.
	DecisionError Decision = "ERROR"
)

// VerdictStatus is the tagged compliance verdict returned by policy evaluation.
// Oracle output never selects a code path directly; it is parsed into one of
// these variants, with StatusUnparsable falling back to the safest branch.
type VerdictStatus string

const (
	// StatusCompliant means the transaction satisfies policy.
	StatusCompliant VerdictStatus = "compliant"
	// StatusNonCompliant means the transaction violates policy.
	StatusNonCompliant VerdictStatus = "non_compliant"
	// StatusUncertain means policy evaluation could not reach a confident verdict.
	StatusUncertain VerdictStatus = "uncertain"
	// StatusUnparsable means the oracle response could not be parsed.
	// It is treated as uncertain by the decision policy.
	StatusUnparsable VerdictStatus = "unparsable"
)

// CallKind tags an audit step by the kind of call the orchestrator made.
type CallKind string

const (
	// CallDelegate marks a step where work was delegated to another component.
	CallDelegate CallKind = "delegate"
	// CallResource marks a step that accessed a store or external resource.
	CallResource CallKind = "resource"
)

// RuleType classifies how a learned exception rule generalizes.
type RuleType string

const (
	// RuleVendor generalizes a correction to all transactions of a vendor.
	RuleVendor RuleType = "vendor"
	// RuleCategory generalizes a correction to an expense category.
	RuleCategory RuleType = "category"
	// RuleThreshold generalizes a correction to an amount threshold.
	RuleThreshold RuleType = "threshold"
)

// LineItem is a single invoice line.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Invoice is the payload of a transaction under compliance review.
type Invoice struct {
	Vendor        string     `json:"vendor"`
	Category      string     `json:"category"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	HasPO         bool       `json:"has_po"`
	International bool       `json:"international"`
	LineItems     []LineItem `json:"line_items,omitempty"`

	// VendorReputation is a 0-100 prior for the vendor. Nil means unknown,
	// which the risk assessor treats as the midpoint.
	VendorReputation *int `json:"vendor_reputation,omitempty"`
}

// Verdict is the result of policy evaluation for a transaction.
type Verdict struct {
	Status     VerdictStatus `json:"status"`
	Confidence float64       `json:"confidence"` // 0..1
	Rationale  string        `json:"rationale,omitempty"`
	Citations  []string      `json:"citations,omitempty"`

	// FailureReason is set when the verdict degraded to uncertain because
	// the oracle was unavailable or returned malformed output.
	FailureReason string `json:"failure_reason,omitempty"`
}

// AuditStep is a single write-once record in a transaction's audit trail.
// Steps are appended strictly in execution order, one per state transition.
type AuditStep struct {
	Step      string    `json:"step"`
	Component string    `json:"component"`
	CallKind  CallKind  `json:"call_kind"`
	Input     string    `json:"input,omitempty"`
	Output    string    `json:"output,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MatchedRule records that an exception rule was consulted during policy
// evaluation of a transaction. KPI computation uses these to determine
// applicable learned-rule scenarios.
type MatchedRule struct {
	RuleID      string  `json:"rule_id"`
	RuleType    string  `json:"rule_type"`
	SuccessRate float64 `json:"success_rate"`
}

// Transaction is the unit of work flowing through the compliance pipeline.
// The audit trail is append-only once any step has been written.
type Transaction struct {
	ID      string  `json:"id"`
	Invoice Invoice `json:"invoice"`

	RiskScore int       `json:"risk_score"` // 0..100
	RiskLevel RiskLevel `json:"risk_level"`

	Verdict      *Verdict      `json:"verdict,omitempty"`
	MatchedRules []MatchedRule `json:"matched_rules,omitempty"`

	Decision      Decision `json:"decision"`
	HumanOverride bool     `json:"human_override"`

	AuditTrail []AuditStep `json:"audit_trail"`
	CreatedAt  time.Time   `json:"created_at"`
}

// RuleCondition is the structured condition attached to an exception rule.
type RuleCondition struct {
	Field    string  `json:"field"`            // "vendor", "category", "amount"
	Operator string  `json:"operator"`         // "equals", "lte", "gte"
	Value    string  `json:"value"`            // string operand
	Amount   float64 `json:"amount,omitempty"` // numeric operand for threshold rules
}

// ExceptionRule is a learned compliance exception derived from human
// corrections. AppliedCount is monotonic and SuccessRate stays within [0,1].
type ExceptionRule struct {
	ID            string        `json:"id"`
	RuleType      RuleType      `json:"rule_type"`
	Vendor        string        `json:"vendor,omitempty"`
	Category      string        `json:"category,omitempty"`
	Description   string        `json:"description"`
	Condition     RuleCondition `json:"condition"`
	AppliedCount  int           `json:"applied_count"`
	SuccessRate   float64       `json:"success_rate"`
	CreatedAt     time.Time     `json:"created_at"`
	LastAppliedAt time.Time     `json:"last_applied_at"`
}

// KPISnapshot aggregates learning-effectiveness metrics for one time bucket
// (a UTC calendar day). Recomputation overwrites the bucket; snapshots are
// never appended.
type KPISnapshot struct {
	Bucket                string    `json:"bucket"` // "2006-01-02"
	TotalTransactions     int       `json:"total_transactions"`
	HumanCorrections      int       `json:"human_corrections"`
	HumanCorrectionRate   float64   `json:"human_correction_rate"`   // H-CR, percent
	ContextRetentionScore float64   `json:"context_retention_score"` // CRS, percent
	AutoApprovalRate      float64   `json:"auto_approval_rate"`      // ATAR, percent
	AuditCompleteness     float64   `json:"audit_completeness"`      // percent
	ComputedAt            time.Time `json:"computed_at"`
}

// FeedbackRecord captures a human correction for a decided transaction.
// Records are created once and never mutated, except that the resulting
// exception id is filled in when the exception manager processes them.
type FeedbackRecord struct {
	ID                   string    `json:"id"`
	TransactionID        string    `json:"transaction_id"`
	OriginalDecision     Decision  `json:"original_decision"`
	HumanDecision        Decision  `json:"human_decision"`
	Reasoning            string    `json:"reasoning"`
	ShouldGeneralize     bool      `json:"should_generalize"`
	ResultingExceptionID string    `json:"resulting_exception_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}
