// Package oracle provides the client for the external decision oracle: the
// judgment service consulted for compliance verdicts and feedback
// classification.
//
// The oracle is an out-of-process collaborator that may fail or return
// malformed output. This package isolates the rest of the pipeline from
// both: responses are parsed into tagged values, failures map onto the
// shared error taxonomy (OracleUnavailableError,
// OracleMalformedResponseError), and callers decide how to degrade.
//
// HTTPOracle talks JSON over HTTP with connection pooling and a per-call
// timeout. StubOracle is a deterministic in-process implementation for tests
// and dry runs.
package oracle
