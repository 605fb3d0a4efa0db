package compliance

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestOracleUnavailableError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewOracleUnavailableError("http://oracle:8080", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match the cause")
	}
	if !strings.Contains(err.Error(), "http://oracle:8080") {
		t.Errorf("expected endpoint in message, got %q", err.Error())
	}
}

func TestOracleMalformedResponseError_TruncatesRaw(t *testing.T) {
	raw := strings.Repeat("x", 2000)
	err := NewOracleMalformedResponseError(raw, fmt.Errorf("bad json"))

	if len(err.RawResponse) != 500 {
		t.Errorf("expected raw response truncated to 500, got %d", len(err.RawResponse))
	}
}

func TestMemoryWriteConflictError_Message(t *testing.T) {
	err := NewMemoryWriteConflictError("rule-1", 3)
	if !strings.Contains(err.Error(), "rule-1") || !strings.Contains(err.Error(), "3") {
		t.Errorf("expected rule id and attempts in message, got %q", err.Error())
	}
}

func TestStateMachineFatalError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("nil pointer")
	err := NewStateMachineFatalError("tx-1", "RISK_ASSESSED", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match the cause")
	}

	var fatal *StateMachineFatalError
	if !errors.As(err, &fatal) {
		t.Fatal("expected errors.As to match *StateMachineFatalError")
	}
	if fatal.State != "RISK_ASSESSED" {
		t.Errorf("expected state RISK_ASSESSED, got %q", fatal.State)
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorageError("sqlite", "save", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match the cause")
	}
}
