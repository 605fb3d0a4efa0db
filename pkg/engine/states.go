package engine

// State is a stage of the compliance state machine. Transitions are strictly
// forward; any state may fall to StateError on an unexpected fault.
type State string

const (
	// StateReceived means the payload passed intake validation.
	StateReceived State = "RECEIVED"
	// StateRiskAssessed means the risk assessor produced a score and level.
	StateRiskAssessed State = "RISK_ASSESSED"
	// StatePolicyEvaluated means the policy evaluator produced a verdict.
	StatePolicyEvaluated State = "POLICY_EVALUATED"
	// StateDecided means the decision policy produced a terminal decision.
	StateDecided State = "DECIDED"
	// StatePersisted means the transaction and its trail were written.
	StatePersisted State = "PERSISTED"
	// StateError is the terminal fault state.
	StateError State = "ERROR"
)

// String implements fmt.Stringer.
func (s State) String() string { return string(s) }

// next returns the state that follows s on the happy path.
func (s State) next() State {
	switch s {
	case StateReceived:
		return StateRiskAssessed
	case StateRiskAssessed:
		return StatePolicyEvaluated
	case StatePolicyEvaluated:
		return StateDecided
	case StateDecided:
		return StatePersisted
	default:
		return StateError
	}
}
