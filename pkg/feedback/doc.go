// Package feedback implements the exception manager. It records human
// corrections against decided transactions, classifies generalizable
// corrections into exception rules via the decision oracle, and writes those
// rules into the adaptive memory store. Feedback recording never depends on
// classification succeeding; a failed classification yields a recorded
// one-off correction.
package feedback
