package audit

import (
	"testing"

	"mercator-hq/saturn/pkg/compliance"
)

func TestTrail_AppendPreservesOrder(t *testing.T) {
	trail := NewTrail()
	trail.Append(StepReceived, "engine", compliance.CallResource, "invoice", "accepted")
	trail.Append(StepRiskAssessed, "risk.assessor", compliance.CallDelegate, "invoice", "LOW")
	trail.Append(StepDecided, "engine.decision", compliance.CallDelegate, "verdict", "APPROVED")

	steps := trail.Steps()
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	want := []string{StepReceived, StepRiskAssessed, StepDecided}
	for i, name := range want {
		if steps[i].Step != name {
			t.Errorf("step %d: expected %s, got %s", i, name, steps[i].Step)
		}
		if steps[i].Timestamp.IsZero() {
			t.Errorf("step %d: expected timestamp", i)
		}
	}
	if trail.Len() != 3 {
		t.Errorf("expected Len() 3, got %d", trail.Len())
	}
}

func TestTrail_StepsReturnsCopy(t *testing.T) {
	trail := NewTrail()
	trail.Append(StepReceived, "engine", compliance.CallResource, "", "")

	steps := trail.Steps()
	steps[0].Step = "tampered"

	if got := trail.Steps()[0].Step; got != StepReceived {
		t.Errorf("trail mutated through returned slice: %s", got)
	}
}

func TestExpectedSteps(t *testing.T) {
	full := ExpectedSteps(compliance.DecisionApproved)
	if len(full) != 5 || full[0] != StepReceived || full[4] != StepPersisted {
		t.Errorf("unexpected full trail expectation: %v", full)
	}

	faulted := ExpectedSteps(compliance.DecisionError)
	if len(faulted) != 1 || faulted[0] != StepError {
		t.Errorf("unexpected error trail expectation: %v", faulted)
	}
}

func TestIsComplete(t *testing.T) {
	mk := func(names ...string) []compliance.AuditStep {
		steps := make([]compliance.AuditStep, len(names))
		for i, n := range names {
			steps[i] = compliance.AuditStep{Step: n}
		}
		return steps
	}

	tests := []struct {
		name     string
		steps    []compliance.AuditStep
		decision compliance.Decision
		want     bool
	}{
		{
			"complete trail",
			mk(StepReceived, StepRiskAssessed, StepPolicyEvaluated, StepDecided, StepPersisted),
			compliance.DecisionApproved,
			true,
		},
		{
			"extra steps between expected ones",
			mk(StepReceived, StepRiskAssessed, StepPolicyEvaluated, "policy_evaluated_retry", StepPolicyEvaluated, StepDecided, StepPersisted),
			compliance.DecisionRejected,
			true,
		},
		{
			"missing persisted step",
			mk(StepReceived, StepRiskAssessed, StepPolicyEvaluated, StepDecided),
			compliance.DecisionApproved,
			false,
		},
		{
			"out of order",
			mk(StepRiskAssessed, StepReceived, StepPolicyEvaluated, StepDecided, StepPersisted),
			compliance.DecisionApproved,
			false,
		},
		{
			"faulted trail with error step",
			mk(StepReceived, StepRiskAssessed, StepError),
			compliance.DecisionError,
			true,
		},
		{
			"faulted trail without error step",
			mk(StepReceived, StepRiskAssessed),
			compliance.DecisionError,
			false,
		},
		{
			"empty trail",
			nil,
			compliance.DecisionApproved,
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComplete(tt.steps, tt.decision); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}
