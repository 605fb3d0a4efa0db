package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/saturn/pkg/audit"
	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/policy"
	"mercator-hq/saturn/pkg/risk"
	"mercator-hq/saturn/pkg/store"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// Pipeline drives one transaction through the compliance state machine.
// Expected failures (oracle outages, malformed verdicts) surface as
// PENDING_HUMAN_REVIEW decisions; only unexpected faults reach StateError.
type Pipeline struct {
	assessor  *risk.Assessor
	evaluator *policy.Evaluator
	store     store.Store
	memory    ruleUsageRecorder

	confidenceThreshold float64
	policyRetries       int

	decisionMetrics *metrics.DecisionMetrics
	logger          *slog.Logger
}

// ruleUsageRecorder is the slice of the memory store the pipeline needs at
// persist time.
type ruleUsageRecorder interface {
	RecordUsage(ctx context.Context, ruleID string, success bool) error
}

// NewPipeline creates a compliance pipeline. confidenceThreshold gates
// auto-approval; policyRetries bounds re-evaluation after a degraded
// verdict. Metrics may be nil.
func NewPipeline(assessor *risk.Assessor, evaluator *policy.Evaluator, st store.Store, mem ruleUsageRecorder, confidenceThreshold float64, policyRetries int, dm *metrics.DecisionMetrics) *Pipeline {
	if policyRetries < 0 {
		policyRetries = 0
	}
	return &Pipeline{
		assessor:            assessor,
		evaluator:           evaluator,
		store:               st,
		memory:              mem,
		confidenceThreshold: confidenceThreshold,
		policyRetries:       policyRetries,
		decisionMetrics:     dm,
		logger:              slog.Default().With("component", "engine.pipeline"),
	}
}

// Run processes one validated invoice to a terminal decision. It never
// returns an error: every run yields a transaction whose decision and audit
// trail describe what happened, including faults.
func (p *Pipeline) Run(ctx context.Context, inv *compliance.Invoice) *compliance.Transaction {
	start := time.Now()

	tx := &compliance.Transaction{
		ID:        uuid.New().String(),
		Invoice:   *inv,
		CreatedAt: time.Now().UTC(),
	}
	trail := audit.NewTrail()
	state := StateReceived

	if err := p.execute(ctx, tx, trail, &state); err != nil {
		p.fail(ctx, tx, trail, state, err)
	}

	p.decisionMetrics.RecordDecision(string(tx.Decision), string(tx.RiskLevel), time.Since(start))

	p.logger.Info("transaction processed",
		"transaction_id", tx.ID,
		"vendor", tx.Invoice.Vendor,
		"risk_level", tx.RiskLevel,
		"decision", tx.Decision,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return tx
}

// execute walks the happy path, appending one audit step per transition.
// A panic in any handler is converted to a fatal state machine error.
func (p *Pipeline) execute(ctx context.Context, tx *compliance.Transaction, trail *audit.Trail, state *State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = compliance.NewStateMachineFatalError(tx.ID, state.String(), fmt.Errorf("panic: %v", r))
		}
	}()

	trail.Append(audit.StepReceived, "engine", compliance.CallResource,
		fmt.Sprintf("vendor=%s category=%s amount=%.2f %s", tx.Invoice.Vendor, tx.Invoice.Category, tx.Invoice.Amount, tx.Invoice.Currency),
		"accepted")

	*state = state.next()
	assessment := p.assessor.Assess(&tx.Invoice)
	tx.RiskScore = assessment.Score
	tx.RiskLevel = assessment.Level
	trail.Append(audit.StepRiskAssessed, "risk.assessor", compliance.CallDelegate,
		fmt.Sprintf("amount=%.2f has_po=%t international=%t", tx.Invoice.Amount, tx.Invoice.HasPO, tx.Invoice.International),
		fmt.Sprintf("score=%d level=%s", assessment.Score, assessment.Level))

	*state = state.next()
	eval := p.evaluator.Evaluate(ctx, tx)
	for attempt := 0; eval.Verdict.FailureReason != "" && attempt < p.policyRetries; attempt++ {
		if ctx.Err() != nil {
			break
		}
		p.logger.Warn("policy evaluation degraded, re-evaluating",
			"transaction_id", tx.ID,
			"attempt", attempt+1,
			"reason", eval.Verdict.FailureReason,
		)
		eval = p.evaluator.Evaluate(ctx, tx)
	}
	tx.Verdict = eval.Verdict
	tx.MatchedRules = eval.MatchedRules
	trail.Append(audit.StepPolicyEvaluated, "policy.evaluator", compliance.CallDelegate,
		fmt.Sprintf("passages=%d rules=%d", len(eval.Passages), len(eval.MatchedRules)),
		fmt.Sprintf("status=%s confidence=%.2f", eval.Verdict.Status, eval.Verdict.Confidence))

	*state = state.next()
	tx.Decision = p.decide(tx)
	trail.Append(audit.StepDecided, "engine.decision", compliance.CallDelegate,
		fmt.Sprintf("risk=%s verdict=%s confidence=%.2f", tx.RiskLevel, tx.Verdict.Status, tx.Verdict.Confidence),
		string(tx.Decision))

	// Cancellation is honored only up to DECIDED. Persistence and usage
	// accounting run detached so a caller that abandoned the wait does not
	// abort the write of a decided transaction.
	persistCtx := context.WithoutCancel(ctx)

	*state = state.next()
	trail.Append(audit.StepPersisted, "store.transactions", compliance.CallResource,
		tx.ID, string(tx.Decision))
	tx.AuditTrail = trail.Steps()
	if err := p.store.SaveTransaction(persistCtx, tx); err != nil {
		return compliance.NewStateMachineFatalError(tx.ID, state.String(), err)
	}

	p.recordRuleUsage(persistCtx, tx)
	return nil
}

// decide maps the risk level and verdict onto a terminal decision.
// Uncertainty always routes to a human; HIGH risk is never auto-approved.
func (p *Pipeline) decide(tx *compliance.Transaction) compliance.Decision {
	v := tx.Verdict
	switch {
	case v.Status == compliance.StatusUncertain || v.Status == compliance.StatusUnparsable:
		return compliance.DecisionPendingReview
	case tx.RiskLevel == compliance.RiskHigh || v.Status == compliance.StatusNonCompliant:
		return compliance.DecisionRejected
	case tx.RiskLevel == compliance.RiskLow && v.Status == compliance.StatusCompliant && v.Confidence >= p.confidenceThreshold:
		return compliance.DecisionApproved
	default:
		return compliance.DecisionPendingReview
	}
}

// recordRuleUsage folds one application into each rule consulted for this
// transaction. A decision counts as a successful application when the
// pipeline reached a definitive outcome on its own.
func (p *Pipeline) recordRuleUsage(ctx context.Context, tx *compliance.Transaction) {
	if p.memory == nil || len(tx.MatchedRules) == 0 {
		return
	}

	success := tx.Decision == compliance.DecisionApproved || tx.Decision == compliance.DecisionRejected
	for _, matched := range tx.MatchedRules {
		if err := p.memory.RecordUsage(ctx, matched.RuleID, success); err != nil {
			p.logger.Warn("failed to record rule usage",
				"transaction_id", tx.ID,
				"rule_id", matched.RuleID,
				"error", err,
			)
		}
	}
}

// fail moves the transaction to terminal ERROR, preserving the partial trail
// and appending the error step, then persists best-effort.
func (p *Pipeline) fail(ctx context.Context, tx *compliance.Transaction, trail *audit.Trail, state State, cause error) {
	p.decisionMetrics.RecordFault(state.String())
	p.logger.Error("pipeline fault",
		"transaction_id", tx.ID,
		"state", state,
		"error", cause,
	)

	tx.Decision = compliance.DecisionError
	trail.Append(audit.StepError, "engine", compliance.CallResource,
		state.String(), cause.Error())
	tx.AuditTrail = trail.Steps()

	// Detach from the caller so the fault record survives cancellation.
	if err := p.store.SaveTransaction(context.WithoutCancel(ctx), tx); err != nil {
		p.logger.Error("failed to persist faulted transaction",
			"transaction_id", tx.ID,
			"error", err,
		)
	}
}
