package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/kpi"
	"mercator-hq/saturn/pkg/memory"
	"mercator-hq/saturn/pkg/oracle"
	"mercator-hq/saturn/pkg/store"
)

// Submission is a human correction for a decided transaction.
type Submission struct {
	// FeedbackID makes resubmission idempotent. Empty generates a new id.
	FeedbackID string

	TransactionID    string
	HumanDecision    compliance.Decision
	Reasoning        string
	ShouldGeneralize bool
}

// UpdateResult reports the effect of processing a submission.
type UpdateResult struct {
	FeedbackID    string
	TransactionID string

	// Decision is the transaction's decision after the correction.
	Decision compliance.Decision

	// ExceptionID is set when the correction generalized into a rule.
	ExceptionID string

	// Duplicate is true when the submission matched an already-processed
	// feedback record and no state changed.
	Duplicate bool
}

// Manager is the exception manager. It applies human corrections to the
// ledger, grows the adaptive memory store, and keeps the affected KPI bucket
// current.
type Manager struct {
	store   store.Store
	memory  memory.Store
	oracle  oracle.Oracle
	kpi     *kpi.Engine
	retries int

	logger *slog.Logger
}

// NewManager creates an exception manager. retries bounds simplified-prompt
// retries for feedback classification.
func NewManager(st store.Store, mem memory.Store, o oracle.Oracle, engine *kpi.Engine, retries int) *Manager {
	if retries < 0 {
		retries = 0
	}
	return &Manager{
		store:   st,
		memory:  mem,
		oracle:  o,
		kpi:     engine,
		retries: retries,
		logger:  slog.Default().With("component", "feedback.manager"),
	}
}

// Process applies a human correction. Resubmitting the same feedback id, or
// submitting any second correction for a transaction, returns the original
// outcome without changing state. The correction overrides the transaction's
// decision even when classification fails; only the learned rule is lost in
// that case.
func (m *Manager) Process(ctx context.Context, sub *Submission) (*UpdateResult, error) {
	if sub.TransactionID == "" {
		return nil, compliance.NewValidationError("transaction_id", "transaction_id is required")
	}
	if err := validateHumanDecision(sub.HumanDecision); err != nil {
		return nil, err
	}

	if sub.FeedbackID != "" {
		existing, err := m.store.GetFeedback(ctx, sub.FeedbackID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return m.duplicateResult(existing), nil
		}
	}

	tx, err := m.store.GetTransaction(ctx, sub.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.Decision == compliance.DecisionError {
		return nil, compliance.NewValidationError("transaction_id",
			fmt.Sprintf("transaction %s faulted and cannot be corrected", sub.TransactionID))
	}

	// A transaction carries at most one correction.
	prior, err := m.store.GetFeedbackByTransaction(ctx, sub.TransactionID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return m.duplicateResult(prior), nil
	}

	record := &compliance.FeedbackRecord{
		ID:               sub.FeedbackID,
		TransactionID:    sub.TransactionID,
		OriginalDecision: tx.Decision,
		HumanDecision:    sub.HumanDecision,
		Reasoning:        sub.Reasoning,
		ShouldGeneralize: sub.ShouldGeneralize,
		CreatedAt:        time.Now().UTC(),
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	corrected := tx.Decision != sub.HumanDecision

	if sub.ShouldGeneralize {
		exceptionID := m.classify(ctx, record, &tx.Invoice)
		record.ResultingExceptionID = exceptionID
	}

	tx.Decision = sub.HumanDecision
	tx.HumanOverride = corrected
	if err := m.store.SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}

	// A correction means the rules that shaped the original decision steered
	// it wrong; fold the failure into their success rates.
	if corrected {
		m.recordRuleFailures(ctx, tx)
	}

	if err := m.store.SaveFeedback(ctx, record); err != nil {
		return nil, err
	}

	if _, err := m.kpi.Recompute(ctx, kpi.BucketFor(tx.CreatedAt)); err != nil {
		m.logger.Warn("kpi recomputation after feedback failed",
			"transaction_id", tx.ID,
			"error", err,
		)
	}

	m.logger.Info("feedback processed",
		"feedback_id", record.ID,
		"transaction_id", tx.ID,
		"original_decision", record.OriginalDecision,
		"human_decision", record.HumanDecision,
		"exception_id", record.ResultingExceptionID,
	)

	return &UpdateResult{
		FeedbackID:    record.ID,
		TransactionID: tx.ID,
		Decision:      tx.Decision,
		ExceptionID:   record.ResultingExceptionID,
	}, nil
}

// classify asks the oracle whether the correction generalizes, retrying once
// with a simplified prompt, and upserts the resulting rule. Returns the rule
// id, or empty when no rule was created.
func (m *Manager) classify(ctx context.Context, record *compliance.FeedbackRecord, inv *compliance.Invoice) string {
	req := &oracle.ClassificationRequest{
		FeedbackID:       record.ID,
		Invoice:          *inv,
		OriginalDecision: record.OriginalDecision,
		HumanDecision:    record.HumanDecision,
		Reasoning:        record.Reasoning,
		ShouldGeneralize: record.ShouldGeneralize,
	}

	classification, err := m.oracle.ClassifyFeedback(ctx, req)
	for attempt := 0; err != nil && attempt < m.retries; attempt++ {
		m.logger.Warn("feedback classification failed, retrying with simplified prompt",
			"feedback_id", record.ID,
			"attempt", attempt+1,
			"error", err,
		)
		simplified := *req
		simplified.Simplified = true
		classification, err = m.oracle.ClassifyFeedback(ctx, &simplified)
	}
	if err != nil {
		m.logger.Warn("feedback classification degraded to one-off correction",
			"feedback_id", record.ID,
			"error", err,
		)
		return ""
	}

	if !classification.ShouldCreateException {
		return ""
	}

	rule := &compliance.ExceptionRule{
		RuleType:    classification.RuleType,
		Vendor:      classification.Vendor,
		Category:    classification.Category,
		Description: classification.Description,
		Condition:   classification.Condition,
	}
	if rule.Description == "" {
		rule.Description = record.Reasoning
	}

	id, err := m.memory.Upsert(ctx, rule)
	if err != nil {
		m.logger.Warn("exception rule upsert failed",
			"feedback_id", record.ID,
			"rule_type", rule.RuleType,
			"error", err,
		)
		return ""
	}

	m.logger.Info("exception rule learned",
		"feedback_id", record.ID,
		"rule_id", id,
		"rule_type", rule.RuleType,
		"vendor", rule.Vendor,
		"category", rule.Category,
	)
	return id
}

// recordRuleFailures folds a failed application into each rule that was
// consulted for the corrected transaction. Write conflicts are logged and
// skipped; the correction itself already committed.
func (m *Manager) recordRuleFailures(ctx context.Context, tx *compliance.Transaction) {
	for _, matched := range tx.MatchedRules {
		if err := m.memory.RecordUsage(ctx, matched.RuleID, false); err != nil {
			m.logger.Warn("failed to record rule failure",
				"transaction_id", tx.ID,
				"rule_id", matched.RuleID,
				"error", err,
			)
		}
	}
}

func (m *Manager) duplicateResult(record *compliance.FeedbackRecord) *UpdateResult {
	return &UpdateResult{
		FeedbackID:    record.ID,
		TransactionID: record.TransactionID,
		Decision:      record.HumanDecision,
		ExceptionID:   record.ResultingExceptionID,
		Duplicate:     true,
	}
}

func validateHumanDecision(d compliance.Decision) error {
	switch d {
	case compliance.DecisionApproved, compliance.DecisionRejected, compliance.DecisionPendingReview:
		return nil
	default:
		return compliance.NewValidationError("human_decision",
			fmt.Sprintf("unsupported human decision %q", d))
	}
}
