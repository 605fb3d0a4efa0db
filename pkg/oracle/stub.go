package oracle

import (
	"context"
	"strings"
	"sync"

	"mercator-hq/saturn/pkg/compliance"
)

// StubOracle is a deterministic in-process Oracle used for tests and dry
// runs. Identical requests always produce identical answers.
//
// Judgments follow a simple heuristic: high-risk or known-violation vendors
// are non-compliant with high confidence, low-risk transactions with a
// purchase order are compliant with high confidence, everything else is
// compliant with low confidence (which the evaluator degrades to uncertain).
//
// Classifications create a vendor rule whenever the feedback asks to
// generalize and names a vendor.
type StubOracle struct {
	// FailJudgments forces JudgeCompliance to return an unavailability
	// error, simulating oracle downtime.
	FailJudgments bool

	// FailClassifications forces ClassifyFeedback to fail.
	FailClassifications bool

	mu    sync.Mutex
	calls int
}

// NewStubOracle creates a deterministic stub oracle.
func NewStubOracle() *StubOracle {
	return &StubOracle{}
}

// Calls returns the number of oracle calls made.
func (s *StubOracle) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// JudgeCompliance implements Oracle deterministically.
func (s *StubOracle) JudgeCompliance(ctx context.Context, req *JudgmentRequest) (*Judgment, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, compliance.NewOracleUnavailableError("stub", err)
	}
	if s.FailJudgments {
		return nil, compliance.NewOracleUnavailableError("stub", context.DeadlineExceeded)
	}

	vendor := strings.ToLower(req.Invoice.Vendor)

	switch {
	case req.RiskLevel == compliance.RiskHigh:
		return &Judgment{
			IsCompliant: false,
			Confidence:  0.9,
			Rationale:   "high-risk transaction without sufficient controls",
		}, nil
	case strings.Contains(vendor, "blocked"):
		return &Judgment{
			IsCompliant: false,
			Confidence:  0.95,
			Rationale:   "vendor is on the blocked list",
		}, nil
	case req.RiskLevel == compliance.RiskLow && req.Invoice.HasPO:
		return &Judgment{
			IsCompliant: true,
			Confidence:  0.9,
			Rationale:   "low-risk purchase with matching purchase order",
		}, nil
	default:
		return &Judgment{
			IsCompliant: true,
			Confidence:  0.5,
			Rationale:   "insufficient signal for a confident verdict",
		}, nil
	}
}

// ClassifyFeedback implements Oracle deterministically.
func (s *StubOracle) ClassifyFeedback(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, compliance.NewOracleUnavailableError("stub", err)
	}
	if s.FailClassifications {
		return nil, compliance.NewOracleUnavailableError("stub", context.DeadlineExceeded)
	}

	if !req.ShouldGeneralize || req.Invoice.Vendor == "" {
		return &Classification{ShouldCreateException: false}, nil
	}

	return &Classification{
		ShouldCreateException: true,
		RuleType:              compliance.RuleVendor,
		Vendor:                req.Invoice.Vendor,
		Category:              req.Invoice.Category,
		Description:           "human-approved exception for " + req.Invoice.Vendor + "/" + req.Invoice.Category,
		Condition: compliance.RuleCondition{
			Field:    "vendor",
			Operator: "equals",
			Value:    req.Invoice.Vendor,
		},
	}, nil
}

// Close implements Oracle.
func (s *StubOracle) Close() error { return nil }
