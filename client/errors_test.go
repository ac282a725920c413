package client

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConnectionError(t *testing.T) {
	err := &ConnectionError{
		Code:    "CONNECTION_FAILED",
		Type:    "CONNECTION_ERROR",
		Message: "failed to connect",
		Details: map[string]interface{}{
			"address": "localhost:7632",
		},
	}

	errStr := err.Error()

	// Should be valid JSON
	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(errStr), &parsed); jsonErr != nil {
		t.Fatalf("error should be valid JSON: %v", jsonErr)
	}

	if parsed["code"] != "CONNECTION_FAILED" {
		t.Errorf("expected code=CONNECTION_FAILED, got %v", parsed["code"])
	}

	if parsed["type"] != "CONNECTION_ERROR" {
		t.Errorf("expected type=CONNECTION_ERROR, got %v", parsed["type"])
	}

	if parsed["message"] != "failed to connect" {
		t.Errorf("expected message='failed to connect', got %v", parsed["message"])
	}
}

func TestConnectionErrorWithCause(t *testing.T) {
	cause := &ConnectionError{
		Code:    "NETWORK_ERROR",
		Type:    "CONNECTION_ERROR",
		Message: "connection refused",
		Details: map[string]interface{}{},
	}

	err := &ConnectionError{
		Code:    "CONNECTION_FAILED",
		Type:    "CONNECTION_ERROR",
		Message: "failed to connect",
		Details: map[string]interface{}{},
		Cause:   cause,
	}

	errStr := err.Error()

	// Should contain cause
	if !strings.Contains(errStr, "cause") {
		t.Errorf("error should contain cause, got: %s", errStr)
	}

	var parsed map[string]interface{}
	json.Unmarshal([]byte(errStr), &parsed)

	if parsed["cause"] == nil {
		t.Error("expected cause field in JSON")
	}
}

func TestConnectionErrorUnwrap(t *testing.T) {
	cause := &ConnectionError{
		Code:    "NETWORK_ERROR",
		Type:    "CONNECTION_ERROR",
		Message: "connection refused",
		Details: map[string]interface{}{},
	}

	err := &ConnectionError{
		Code:    "CONNECTION_FAILED",
		Type:    "CONNECTION_ERROR",
		Message: "failed to connect",
		Details: map[string]interface{}{},
		Cause:   cause,
	}

	unwrapped := err.Unwrap()

	if unwrapped != cause {
		t.Errorf("expected unwrapped to be cause, got %v", unwrapped)
	}
}

func TestQueryError(t *testing.T) {
	err := &QueryError{
		Code:          "E_SERVER",
		Type:          "QUERY_ERROR",
		Message:       "statement rejected",
		Query:         "SELEC 1",
		ServerErrno:   1064,
		ServerMessage: "syntax error",
	}

	got := err.Error()
	if got != "E_SERVER: statement rejected (#1064 syntax error)" {
		t.Errorf("unexpected message %q", got)
	}

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(err.FormatError(true)), &parsed); jsonErr != nil {
		t.Fatalf("debug format should be valid JSON: %v", jsonErr)
	}
	if parsed["query"] != "SELEC 1" {
		t.Errorf("expected query in debug output, got %v", parsed["query"])
	}
}

func TestFieldErrors(t *testing.T) {
	unknown := ErrUnknownField("nope")
	if unknown.Code != "E_UNKNOWN_FIELD" || unknown.Field != "nope" || unknown.Index != -1 {
		t.Errorf("unexpected unknown field error %+v", unknown)
	}

	rangeErr := ErrFieldIndexOutOfRange(5, 3)
	if rangeErr.Code != "E_FIELD_INDEX_RANGE" || rangeErr.Index != 5 {
		t.Errorf("unexpected range error %+v", rangeErr)
	}
	if !strings.Contains(rangeErr.Error(), "[0, 3)") {
		t.Errorf("expected range in message, got %q", rangeErr.Error())
	}
	if !IsFieldError(rangeErr) || IsStateError(rangeErr) {
		t.Error("range error should only classify as a field error")
	}
}

func TestErrInvalidBatchState(t *testing.T) {
	err := ErrInvalidBatchState("PutInt", STARTED)

	if err.Code != "INVALID_STATE" {
		t.Errorf("expected code=INVALID_STATE, got %s", err.Code)
	}
	if err.Details["currentState"] != "STARTED" {
		t.Errorf("expected currentState=STARTED, got %v", err.Details["currentState"])
	}
	if err.Details["operation"] != "PutInt" {
		t.Errorf("expected operation=PutInt, got %v", err.Details["operation"])
	}
}

func TestWrapQueryError(t *testing.T) {
	t.Run("wraps plain errors", func(t *testing.T) {
		cause := errors.New("broken pipe")
		err := wrapQueryError("E_QUERY_FAILED", "query execution failed", "SELECT 1", cause)

		var qerr *QueryError
		if !errors.As(err, &qerr) {
			t.Fatalf("expected *QueryError, got %T", err)
		}
		if qerr.Code != "E_QUERY_FAILED" || qerr.Query != "SELECT 1" {
			t.Errorf("unexpected wrap %+v", qerr)
		}
		if !errors.Is(err, cause) {
			t.Error("expected cause to be reachable")
		}
	})

	t.Run("keeps query errors", func(t *testing.T) {
		server := &QueryError{Code: "E_SERVER", Type: "QUERY_ERROR", Message: "rejected"}
		err := wrapQueryError("E_QUERY_FAILED", "query execution failed", "SELECT 2", server)
		if err != server {
			t.Fatalf("expected the same error back, got %v", err)
		}
		if server.Query != "SELECT 2" {
			t.Errorf("expected query to be filled in, got %q", server.Query)
		}
	})

	t.Run("keeps connection errors", func(t *testing.T) {
		conn := ErrNotConnected("Execute")
		err := wrapQueryError("E_QUERY_FAILED", "query execution failed", "SELECT 3", conn)
		if !IsConnectionError(err) || IsQueryError(err) {
			t.Errorf("expected connection error to pass through, got %v", err)
		}
	})
}

func TestFormatErrorHelper(t *testing.T) {
	if FormatError(nil, true) != "" {
		t.Error("expected empty string for nil error")
	}

	plain := errors.New("plain")
	if FormatError(plain, true) != "plain" {
		t.Error("expected plain errors to use Error()")
	}

	err := ErrBatchClosed("Finish")
	if got := FormatError(err, false); got != "E_BATCH_CLOSED: Finish called on a finished batch" {
		t.Errorf("unexpected format %q", got)
	}
	if !strings.Contains(FormatError(err, true), "stack_trace") {
		t.Error("expected stack trace in debug output")
	}
}
