// Package policy implements the policy evaluator: it assembles context from
// the policy corpus and the adaptive memory store, consults the decision
// oracle, and produces a tagged compliance verdict. Evaluation never fails
// hard; when the oracle is unavailable or unparsable after the bounded retry,
// the verdict degrades to uncertain so the transaction routes to human review.
package policy
