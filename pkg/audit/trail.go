package audit

import (
	"sync"
	"time"

	"mercator-hq/saturn/pkg/compliance"
)

// Step names recorded in the audit trail, one per state transition.
const (
	StepReceived        = "received"
	StepRiskAssessed    = "risk_assessed"
	StepPolicyEvaluated = "policy_evaluated"
	StepDecided         = "decided"
	StepPersisted       = "persisted"
	StepError           = "error"
)

// Trail accumulates write-once audit steps for a single transaction in
// strict execution order.
type Trail struct {
	mu    sync.Mutex
	steps []compliance.AuditStep
}

// NewTrail creates an empty audit trail.
func NewTrail() *Trail {
	return &Trail{}
}

// Append records a step. Steps cannot be modified or removed once written.
func (t *Trail) Append(step, component string, kind compliance.CallKind, input, output string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.steps = append(t.steps, compliance.AuditStep{
		Step:      step,
		Component: component,
		CallKind:  kind,
		Input:     input,
		Output:    output,
		Timestamp: time.Now().UTC(),
	})
}

// Steps returns a copy of the recorded steps in execution order.
func (t *Trail) Steps() []compliance.AuditStep {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]compliance.AuditStep, len(t.steps))
	copy(out, t.steps)
	return out
}

// Len returns the number of recorded steps.
func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.steps)
}

// ExpectedSteps returns the step names a complete trail must contain for a
// transaction that reached the given terminal decision. Trails of faulted
// transactions end with an error step after whatever partial prefix was
// recorded, so only the error step itself is required.
func ExpectedSteps(decision compliance.Decision) []string {
	switch decision {
	case compliance.DecisionError:
		return []string{StepError}
	default:
		return []string{
			StepReceived,
			StepRiskAssessed,
			StepPolicyEvaluated,
			StepDecided,
			StepPersisted,
		}
	}
}

// IsComplete reports whether a trail contains every expected step for the
// decision, in order. Extra steps between expected ones are permitted.
func IsComplete(steps []compliance.AuditStep, decision compliance.Decision) bool {
	expected := ExpectedSteps(decision)
	i := 0
	for _, s := range steps {
		if i < len(expected) && s.Step == expected[i] {
			i++
		}
	}
	return i == len(expected)
}
