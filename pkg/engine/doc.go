// Package engine implements the orchestrating auditor: a worker pool that
// drives each transaction through the compliance state machine
// (RECEIVED, RISK_ASSESSED, POLICY_EVALUATED, DECIDED, PERSISTED) while
// recording one audit step per transition. Expected failures route to
// PENDING_HUMAN_REVIEW; unexpected faults move the transaction to terminal
// ERROR with its partial trail preserved.
package engine
