package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/kpi"
	"mercator-hq/saturn/pkg/memory"
	"mercator-hq/saturn/pkg/oracle"
	"mercator-hq/saturn/pkg/store"
)

type fixture struct {
	store   *store.MemoryStore
	memory  *memory.MemoryStore
	oracle  *oracle.StubOracle
	manager *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := store.NewMemoryStore()
	mem := memory.NewMemoryStore(nil)
	stub := oracle.NewStubOracle()
	engine := kpi.NewEngine(st, nil)
	return &fixture{
		store:   st,
		memory:  mem,
		oracle:  stub,
		manager: NewManager(st, mem, stub, engine, 1),
	}
}

func (f *fixture) seedTransaction(t *testing.T, id string, decision compliance.Decision, mutate func(*compliance.Transaction)) {
	t.Helper()

	tx := &compliance.Transaction{
		ID: id,
		Invoice: compliance.Invoice{
			Vendor:   "Acme Corp",
			Category: "office_supplies",
			Amount:   199.99,
			Currency: "USD",
			HasPO:    true,
		},
		RiskScore: 5,
		RiskLevel: compliance.RiskLow,
		Decision:  decision,
		CreatedAt: time.Now().UTC(),
	}
	if mutate != nil {
		mutate(tx)
	}
	if err := f.store.SaveTransaction(context.Background(), tx); err != nil {
		t.Fatalf("SaveTransaction() failed: %v", err)
	}
}

func TestProcess_CorrectionOverridesDecision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTransaction(t, "tx-1", compliance.DecisionRejected, nil)

	result, err := f.manager.Process(ctx, &Submission{
		TransactionID: "tx-1",
		HumanDecision: compliance.DecisionApproved,
		Reasoning:     "contract on file",
	})
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if result.Decision != compliance.DecisionApproved {
		t.Errorf("expected APPROVED, got %s", result.Decision)
	}
	if result.Duplicate {
		t.Error("first submission flagged as duplicate")
	}

	tx, err := f.store.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() failed: %v", err)
	}
	if tx.Decision != compliance.DecisionApproved {
		t.Errorf("decision not overridden: %s", tx.Decision)
	}
	if !tx.HumanOverride {
		t.Error("expected HumanOverride set for a differing decision")
	}

	fb, err := f.store.GetFeedback(ctx, result.FeedbackID)
	if err != nil {
		t.Fatalf("GetFeedback() failed: %v", err)
	}
	if fb == nil || fb.OriginalDecision != compliance.DecisionRejected {
		t.Errorf("feedback record not persisted: %+v", fb)
	}
}

func TestProcess_ConfirmationIsNotAnOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTransaction(t, "tx-1", compliance.DecisionApproved, nil)

	if _, err := f.manager.Process(ctx, &Submission{
		TransactionID: "tx-1",
		HumanDecision: compliance.DecisionApproved,
		Reasoning:     "confirmed",
	}); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	tx, err := f.store.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() failed: %v", err)
	}
	if tx.HumanOverride {
		t.Error("confirming the existing decision must not count as an override")
	}
}

func TestProcess_IdempotentByFeedbackID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTransaction(t, "tx-1", compliance.DecisionRejected, nil)

	sub := &Submission{
		FeedbackID:    "fb-1",
		TransactionID: "tx-1",
		HumanDecision: compliance.DecisionApproved,
	}
	first, err := f.manager.Process(ctx, sub)
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	second, err := f.manager.Process(ctx, sub)
	if err != nil {
		t.Fatalf("resubmission failed: %v", err)
	}
	if !second.Duplicate {
		t.Error("resubmission not flagged as duplicate")
	}
	if second.FeedbackID != first.FeedbackID || second.Decision != first.Decision {
		t.Errorf("duplicate result differs: %+v vs %+v", second, first)
	}
}

func TestProcess_OneCorrectionPerTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTransaction(t, "tx-1", compliance.DecisionRejected, nil)

	if _, err := f.manager.Process(ctx, &Submission{
		FeedbackID:    "fb-1",
		TransactionID: "tx-1",
		HumanDecision: compliance.DecisionApproved,
	}); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	second, err := f.manager.Process(ctx, &Submission{
		FeedbackID:    "fb-2",
		TransactionID: "tx-1",
		HumanDecision: compliance.DecisionRejected,
	})
	if err != nil {
		t.Fatalf("second correction failed: %v", err)
	}
	if !second.Duplicate {
		t.Error("second correction for the same transaction not flagged as duplicate")
	}
	if second.FeedbackID != "fb-1" {
		t.Errorf("expected the original feedback id, got %s", second.FeedbackID)
	}

	tx, err := f.store.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() failed: %v", err)
	}
	if tx.Decision != compliance.DecisionApproved {
		t.Errorf("second correction changed the decision: %s", tx.Decision)
	}
}

func TestProcess_GeneralizesIntoRule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTransaction(t, "tx-1", compliance.DecisionRejected, nil)

	result, err := f.manager.Process(ctx, &Submission{
		TransactionID:    "tx-1",
		HumanDecision:    compliance.DecisionApproved,
		Reasoning:        "standing exception for this vendor",
		ShouldGeneralize: true,
	})
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if result.ExceptionID == "" {
		t.Fatal("expected a learned exception rule")
	}

	rule, err := f.memory.Get(ctx, result.ExceptionID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if rule.RuleType != compliance.RuleVendor || rule.Vendor != "Acme Corp" {
		t.Errorf("unexpected rule: %+v", rule)
	}

	fb, err := f.store.GetFeedback(ctx, result.FeedbackID)
	if err != nil {
		t.Fatalf("GetFeedback() failed: %v", err)
	}
	if fb.ResultingExceptionID != result.ExceptionID {
		t.Errorf("exception id not recorded on feedback: %q", fb.ResultingExceptionID)
	}
}

func TestProcess_ClassificationFailureDegradesToOneOff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.oracle.FailClassifications = true
	f.seedTransaction(t, "tx-1", compliance.DecisionRejected, nil)

	result, err := f.manager.Process(ctx, &Submission{
		TransactionID:    "tx-1",
		HumanDecision:    compliance.DecisionApproved,
		ShouldGeneralize: true,
	})
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if result.ExceptionID != "" {
		t.Errorf("expected no rule on classification failure, got %s", result.ExceptionID)
	}

	// The correction itself still lands.
	tx, err := f.store.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() failed: %v", err)
	}
	if tx.Decision != compliance.DecisionApproved {
		t.Errorf("correction lost: %s", tx.Decision)
	}
}

func TestProcess_RecordsRuleFailuresOnCorrection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ruleID, err := f.memory.Upsert(ctx, &compliance.ExceptionRule{
		RuleType:    compliance.RuleVendor,
		Vendor:      "Acme Corp",
		Description: "prior exception",
	})
	if err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	f.seedTransaction(t, "tx-1", compliance.DecisionApproved, func(tx *compliance.Transaction) {
		tx.MatchedRules = []compliance.MatchedRule{{RuleID: ruleID, RuleType: "vendor", SuccessRate: 1.0}}
	})

	if _, err := f.manager.Process(ctx, &Submission{
		TransactionID: "tx-1",
		HumanDecision: compliance.DecisionRejected,
		Reasoning:     "vendor contract expired",
	}); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	rule, err := f.memory.Get(ctx, ruleID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if rule.AppliedCount != 1 {
		t.Errorf("expected a failure application recorded, got count %d", rule.AppliedCount)
	}
	if rule.SuccessRate != 0 {
		t.Errorf("expected success rate folded to 0, got %v", rule.SuccessRate)
	}
}

func TestProcess_RecomputesKPIBucket(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	f.seedTransaction(t, "tx-1", compliance.DecisionApproved, func(tx *compliance.Transaction) {
		tx.CreatedAt = created
	})

	if _, err := f.manager.Process(ctx, &Submission{
		TransactionID: "tx-1",
		HumanDecision: compliance.DecisionRejected,
	}); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	snap, err := f.store.GetSnapshot(ctx, "2026-08-28")
	if err != nil {
		t.Fatalf("GetSnapshot() failed: %v", err)
	}
	if snap == nil {
		t.Fatal("expected the transaction's bucket to be recomputed")
	}
	if snap.HumanCorrections != 1 {
		t.Errorf("expected 1 correction in snapshot, got %d", snap.HumanCorrections)
	}
}

func TestProcess_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTransaction(t, "tx-err", compliance.DecisionError, nil)

	tests := []struct {
		name string
		sub  *Submission
	}{
		{"missing transaction id", &Submission{HumanDecision: compliance.DecisionApproved}},
		{"invalid human decision", &Submission{TransactionID: "tx-err", HumanDecision: "MAYBE"}},
		{"error decision not supported", &Submission{TransactionID: "tx-err", HumanDecision: compliance.DecisionError}},
		{"faulted transaction", &Submission{TransactionID: "tx-err", HumanDecision: compliance.DecisionApproved}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manager.Process(ctx, tt.sub)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var vErr *compliance.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestProcess_UnknownTransaction(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Process(context.Background(), &Submission{
		TransactionID: "absent",
		HumanDecision: compliance.DecisionApproved,
	})
	if err == nil {
		t.Fatal("expected error for unknown transaction")
	}
}
