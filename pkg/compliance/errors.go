package compliance

import "fmt"

// ValidationError indicates a malformed transaction payload rejected before
// entering the state machine. It is surfaced synchronously to the submitter.
type ValidationError struct {
	Field   string // Offending field
	Message string // Why validation failed
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// OracleUnavailableError indicates the decision oracle could not be reached
// or timed out. Policy evaluation degrades to an uncertain verdict.
type OracleUnavailableError struct {
	Endpoint string // Oracle endpoint that failed
	Cause    error  // Underlying error
}

// Error implements the error interface.
func (e *OracleUnavailableError) Error() string {
	return fmt.Sprintf("oracle unavailable [endpoint=%s]: %v", e.Endpoint, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *OracleUnavailableError) Unwrap() error {
	return e.Cause
}

// NewOracleUnavailableError creates a new OracleUnavailableError.
func NewOracleUnavailableError(endpoint string, cause error) *OracleUnavailableError {
	return &OracleUnavailableError{Endpoint: endpoint, Cause: cause}
}

// OracleMalformedResponseError indicates the oracle responded but its output
// could not be parsed into a verdict or classification.
type OracleMalformedResponseError struct {
	RawResponse string // Raw oracle output (truncated)
	Cause       error  // Underlying parse error
}

// Error implements the error interface.
func (e *OracleMalformedResponseError) Error() string {
	return fmt.Sprintf("oracle returned malformed response: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *OracleMalformedResponseError) Unwrap() error {
	return e.Cause
}

// NewOracleMalformedResponseError creates a new OracleMalformedResponseError.
func NewOracleMalformedResponseError(raw string, cause error) *OracleMalformedResponseError {
	const maxRaw = 500
	if len(raw) > maxRaw {
		raw = raw[:maxRaw]
	}
	return &OracleMalformedResponseError{RawResponse: raw, Cause: cause}
}

// MemoryWriteConflictError indicates a concurrent rule update lost an
// optimistic write race after exhausting its retry budget. The enclosing
// transaction completes using its pre-conflict snapshot.
type MemoryWriteConflictError struct {
	RuleID   string // Rule that raced
	Attempts int    // Attempts made before giving up
}

// Error implements the error interface.
func (e *MemoryWriteConflictError) Error() string {
	return fmt.Sprintf("memory write conflict [rule_id=%s, attempts=%d]", e.RuleID, e.Attempts)
}

// NewMemoryWriteConflictError creates a new MemoryWriteConflictError.
func NewMemoryWriteConflictError(ruleID string, attempts int) *MemoryWriteConflictError {
	return &MemoryWriteConflictError{RuleID: ruleID, Attempts: attempts}
}

// StateMachineFatalError indicates an unexpected fault inside a state
// handler. The transaction moves to terminal ERROR with its partial trail
// preserved and is never auto-retried.
type StateMachineFatalError struct {
	TransactionID string // Transaction that faulted
	State         string // State in which the fault occurred
	Cause         error  // Underlying error
}

// Error implements the error interface.
func (e *StateMachineFatalError) Error() string {
	return fmt.Sprintf("state machine fault [transaction=%s, state=%s]: %v", e.TransactionID, e.State, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StateMachineFatalError) Unwrap() error {
	return e.Cause
}

// NewStateMachineFatalError creates a new StateMachineFatalError.
func NewStateMachineFatalError(transactionID, state string, cause error) *StateMachineFatalError {
	return &StateMachineFatalError{TransactionID: transactionID, State: state, Cause: cause}
}

// StorageError represents an error from a persistence backend.
type StorageError struct {
	Backend   string // Storage backend ("sqlite", "memory")
	Operation string // Operation that failed ("save", "get", "query")
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
