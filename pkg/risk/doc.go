// Package risk implements the risk assessor: a pure, total scoring function
// from a transaction's invoice payload to a risk score in [0,100] and a
// coarse risk level. It has no side effects and never fails; missing fields
// degrade toward higher risk, never lower.
package risk
