package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"
)

// ConnectionError represents an unavailable or unusable connection.
type ConnectionError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// Error implements the error interface.
// Returns JSON format; use FormatError() for the concise form.
func (e *ConnectionError) Error() string {
	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	if e.Cause != nil {
		if cerr, ok := e.Cause.(*ConnectionError); ok {
			errorData["cause"] = map[string]interface{}{
				"code":    cerr.Code,
				"type":    cerr.Type,
				"message": cerr.Message,
			}
		} else {
			errorData["cause"] = map[string]interface{}{
				"message": e.Cause.Error(),
			}
		}
	}

	b, _ := json.Marshal(errorData)
	return string(b)
}

// FormatError formats the error based on debug mode setting.
// When debugMode=false: returns simple "CODE: message" format.
// When debugMode=true: returns full JSON with stack trace and timestamp.
func (e *ConnectionError) FormatError(debugMode bool) string {
	if !debugMode {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
		}
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	if e.Cause != nil {
		errorData["cause"] = map[string]interface{}{"message": e.Cause.Error()}
	}

	if len(e.StackTrace) > 0 {
		errorData["stack_trace"] = e.StackTrace
	}

	if !e.Timestamp.IsZero() {
		errorData["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// Unwrap returns the underlying cause error for errors.Is and errors.As compatibility.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// QueryError represents SQL rejected by the server, or a failure while
// executing or reading the result of a statement.
type QueryError struct {
	Code          string                 `json:"code"`
	Type          string                 `json:"type"`
	Message       string                 `json:"message"`
	Details       map[string]interface{} `json:"details"`
	Query         string                 `json:"query,omitempty"`
	ServerErrno   int                    `json:"server_errno,omitempty"`
	ServerMessage string                 `json:"server_message,omitempty"`
	Cause         error                  `json:"cause,omitempty"`
	StackTrace    []string               `json:"stack_trace,omitempty"`
	Timestamp     time.Time              `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return e.FormatError(false)
}

// FormatError formats the error based on debug mode.
func (e *QueryError) FormatError(debugMode bool) string {
	if !debugMode {
		msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
		if e.ServerMessage != "" {
			msg += fmt.Sprintf(" (#%d %s)", e.ServerErrno, e.ServerMessage)
		}
		if e.Cause != nil {
			msg += fmt.Sprintf(" (caused by: %s)", e.Cause.Error())
		}
		return msg
	}

	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
	}

	if e.Query != "" {
		errorData["query"] = e.Query
	}

	if e.ServerMessage != "" || e.ServerErrno != 0 {
		errorData["server_errno"] = e.ServerErrno
		errorData["server_message"] = e.ServerMessage
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	if e.Cause != nil {
		errorData["cause"] = map[string]interface{}{"message": e.Cause.Error()}
	}

	if len(e.StackTrace) > 0 {
		errorData["stack_trace"] = e.StackTrace
	}

	if !e.Timestamp.IsZero() {
		errorData["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// FieldError represents a request for a field name or index the result does not have.
type FieldError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Field      string                 `json:"field,omitempty"`
	Index      int                    `json:"index"`
	Details    map[string]interface{} `json:"details"`
	StackTrace []string               `json:"stack_trace,omitempty"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return e.FormatError(false)
}

// FormatError formats the error based on debug mode.
func (e *FieldError) FormatError(debugMode bool) string {
	if !debugMode {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
		"field":   e.Field,
		"index":   e.Index,
	}

	if len(e.Details) > 0 {
		errorData["details"] = e.Details
	}

	if len(e.StackTrace) > 0 {
		errorData["stack_trace"] = e.StackTrace
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// StateError represents an operation attempted in the wrong state, i.e. a
// violation of the caller contract.
type StateError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	StackTrace []string               `json:"stack_trace,omitempty"`
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return e.FormatError(false)
}

// FormatError formats the error based on debug mode.
func (e *StateError) FormatError(debugMode bool) string {
	if !debugMode {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	errorData := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
		"details": e.Details,
	}

	if len(e.StackTrace) > 0 {
		errorData["stack_trace"] = e.StackTrace
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// ErrUnknownField creates a FieldError for a name missing from the field index.
func ErrUnknownField(name string) *FieldError {
	return &FieldError{
		Code:    "E_UNKNOWN_FIELD",
		Type:    "FIELD_ERROR",
		Message: fmt.Sprintf("unknown field '%s'", name),
		Field:   name,
		Index:   -1,
		Details: map[string]interface{}{
			"field": name,
		},
		StackTrace: captureStackTrace(),
	}
}

// ErrFieldIndexOutOfRange creates a FieldError for an index outside [0, count).
func ErrFieldIndexOutOfRange(index, count int) *FieldError {
	return &FieldError{
		Code:    "E_FIELD_INDEX_RANGE",
		Type:    "FIELD_ERROR",
		Message: fmt.Sprintf("field index %d out of range [0, %d)", index, count),
		Index:   index,
		Details: map[string]interface{}{
			"index":      index,
			"fieldCount": count,
		},
		StackTrace: captureStackTrace(),
	}
}

// ErrInvalidBatchState creates a StateError for batch operations attempted in the wrong state.
func ErrInvalidBatchState(operation string, actual BatchState) *StateError {
	return &StateError{
		Code:    "INVALID_STATE",
		Type:    "STATE_ERROR",
		Message: fmt.Sprintf("%s is not allowed in state %s", operation, actual),
		Details: map[string]interface{}{
			"operation":    operation,
			"currentState": actual.String(),
		},
		StackTrace: captureStackTrace(),
	}
}

// ErrBatchClosed creates a StateError for use of a finished batch.
func ErrBatchClosed(operation string) *StateError {
	return &StateError{
		Code:    "E_BATCH_CLOSED",
		Type:    "STATE_ERROR",
		Message: fmt.Sprintf("%s called on a finished batch", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
		StackTrace: captureStackTrace(),
	}
}

// ErrValueCountMismatch creates a StateError for an entry whose value count
// differs from the declared column count.
func ErrValueCountMismatch(expected, actual int) *StateError {
	return &StateError{
		Code:    "E_VALUE_COUNT_MISMATCH",
		Type:    "STATE_ERROR",
		Message: fmt.Sprintf("value count mismatch: expected %d, got %d", expected, actual),
		Details: map[string]interface{}{
			"expected": expected,
			"actual":   actual,
		},
		StackTrace: captureStackTrace(),
	}
}

// ErrNoMoreRows creates a StateError for cursor access past the last row.
func ErrNoMoreRows(position, numRows int) *StateError {
	return &StateError{
		Code:    "E_NO_MORE_ROWS",
		Type:    "STATE_ERROR",
		Message: "no rows remain in the result",
		Details: map[string]interface{}{
			"position": position,
			"numRows":  numRows,
		},
	}
}

// ErrQueryClosed creates a StateError for cursor access on a closed query.
func ErrQueryClosed(operation string) *StateError {
	return &StateError{
		Code:    "E_QUERY_CLOSED",
		Type:    "STATE_ERROR",
		Message: fmt.Sprintf("%s called on a closed query", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// ErrNotConnected creates a ConnectionError for a missing collaborator.
func ErrNotConnected(operation string) *ConnectionError {
	return &ConnectionError{
		Code:    "E_NOT_CONNECTED",
		Type:    "CONNECTION_ERROR",
		Message: fmt.Sprintf("%s requires a connection", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// wrapQueryError returns err unchanged when it is already one of this
// package's error types, and wraps it into a QueryError otherwise.
func wrapQueryError(code, message, query string, err error) error {
	var qerr *QueryError
	if errors.As(err, &qerr) {
		if qerr.Query == "" {
			qerr.Query = query
		}
		return qerr
	}
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr
	}
	return &QueryError{
		Code:       code,
		Type:       "QUERY_ERROR",
		Message:    message,
		Query:      query,
		Cause:      err,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// IsQueryError reports whether err is or wraps a *QueryError.
func IsQueryError(err error) bool {
	var target *QueryError
	return errors.As(err, &target)
}

// IsFieldError reports whether err is or wraps a *FieldError.
func IsFieldError(err error) bool {
	var target *FieldError
	return errors.As(err, &target)
}

// IsConnectionError reports whether err is or wraps a *ConnectionError.
func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

// IsStateError reports whether err is or wraps a *StateError.
func IsStateError(err error) bool {
	var target *StateError
	return errors.As(err, &target)
}

// Helper functions

// captureStackTrace captures the current stack trace for error reporting.
func captureStackTrace() []string {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(3, pcs) // Skip captureStackTrace, the error constructor, and runtime.Callers

	frames := make([]string, 0, n)
	callersFrames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := callersFrames.Next()

		frames = append(frames, fmt.Sprintf("%s (%s:%d)",
			frame.Function,
			frame.File,
			frame.Line,
		))

		if !more {
			break
		}
	}

	return frames
}

// FormatError is a helper to format any error with debug mode support.
func FormatError(err error, debugMode bool) string {
	if err == nil {
		return ""
	}

	type debugFormatter interface {
		FormatError(bool) string
	}

	if formatter, ok := err.(debugFormatter); ok {
		return formatter.FormatError(debugMode)
	}

	return err.Error()
}
