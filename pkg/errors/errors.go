// Package errors defines the error taxonomy of the reconciliation service.
//
// Every error crossing a component boundary is classified into a category
// and code so callers can distinguish a bad request (fix the input), a
// failed source query (retry), and a broken invariant (page an operator).
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents the broad classes of reconciliation failures.
type ErrorCategory string

const (
	// CategoryInput marks malformed caller parameters, rejected before
	// any source is queried.
	CategoryInput ErrorCategory = "input"
	// CategorySource marks a failed or timed-out source query. The whole
	// run aborts; partial results are never unified.
	CategorySource ErrorCategory = "source"
	// CategoryReconciliation marks a violated consistency invariant.
	CategoryReconciliation ErrorCategory = "reconciliation"
	// CategoryInternal marks unexpected failures.
	CategoryInternal ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories.
type ErrorCode string

const (
	// Input errors
	CodeInvalidMonth     ErrorCode = "invalid_month"
	CodeInvalidWindow    ErrorCode = "invalid_window"
	CodeMissingParameter ErrorCode = "missing_parameter"

	// Source errors
	CodeQueryFailed       ErrorCode = "query_failed"
	CodeSourceTimeout     ErrorCode = "source_timeout"
	CodeSourceUnavailable ErrorCode = "source_unavailable"

	// Reconciliation errors
	CodeChannelSumMismatch ErrorCode = "channel_sum_mismatch"
	CodeResolutionFailed   ErrorCode = "resolution_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconError is the base error type for all service errors.
type ReconError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *ReconError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *ReconError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the category to the status the query surface responds
// with. Reconciliation failures are a distinct operator-visible state, not
// a generic 500.
func (e *ReconError) HTTPStatus() int {
	switch e.Category {
	case CategoryInput:
		return 400
	case CategorySource:
		return 502
	case CategoryReconciliation:
		return 409
	default:
		return 500
	}
}

// ExitCode maps the category onto a CLI process exit code.
func (e *ReconError) ExitCode() int {
	switch e.Category {
	case CategoryInput:
		return 2
	case CategorySource:
		return 3
	case CategoryReconciliation:
		return 4
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *ReconError) WithContext(key string, value interface{}) *ReconError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error.
func (e *ReconError) WithSuggestion(suggestion string) *ReconError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconError.
func New(category ErrorCategory, code ErrorCode, message string) *ReconError {
	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconError classification.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}
	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// InputError creates an input-category error for a malformed caller
// parameter. Input errors are raised before any source is queried.
func InputError(code ErrorCode, parameter string, value interface{}) *ReconError {
	var message, suggestion string
	switch code {
	case CodeInvalidMonth:
		message = fmt.Sprintf("invalid month parameter %q: %v", parameter, value)
		suggestion = "supply an ISO first-of-month date, e.g. 2025-09-01"
	case CodeInvalidWindow:
		message = fmt.Sprintf("invalid window parameter %q: %v", parameter, value)
		suggestion = "check the fiscal window parameters"
	case CodeMissingParameter:
		message = fmt.Sprintf("required parameter %q is missing", parameter)
		suggestion = "provide a value for this parameter"
	default:
		message = fmt.Sprintf("invalid parameter %q: %v", parameter, value)
		suggestion = "check the request parameters"
	}

	return New(CategoryInput, code, message).
		WithSuggestion(suggestion).
		WithContext("parameter", parameter).
		WithContext("value", value)
}

// SourceError creates a source-category error naming the source whose
// query failed. The reconciliation run carrying it has been aborted.
func SourceError(code ErrorCode, source string, err error) *ReconError {
	var message, suggestion string
	switch code {
	case CodeSourceTimeout:
		message = fmt.Sprintf("source %q timed out", source)
		suggestion = "check store load and increase the query timeout"
	case CodeQueryFailed:
		message = fmt.Sprintf("source %q query failed", source)
		suggestion = "check the store connection and the source table"
	default:
		message = fmt.Sprintf("source %q unavailable", source)
		suggestion = "verify the source table exists and is reachable"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategorySource, code, message)
	} else {
		result = New(CategorySource, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// ReconciliationError creates a reconciliation-category error for a
// violated invariant. The structured discrepancy detail lives on the typed
// error in internal/recon; this carries the classification.
func ReconciliationError(code ErrorCode, operation string, err error) *ReconError {
	var message, suggestion string
	switch code {
	case CodeChannelSumMismatch:
		message = fmt.Sprintf("channel sums disagree with stated month totals during %s", operation)
		suggestion = "inspect the offending months before trusting any report"
	default:
		message = fmt.Sprintf("reconciliation error during %s", operation)
		suggestion = "review the source data and the precedence configuration"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryReconciliation, code, message)
	} else {
		result = New(CategoryReconciliation, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal-category error.
func InternalError(operation string, err error) *ReconError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}
	return result.
		WithSuggestion("this is likely a bug - report it with the error details").
		WithContext("operation", operation)
}

// IsCategory reports whether err is a ReconError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	re, ok := AsReconError(err)
	return ok && re.Category == category
}

// AsReconError extracts a ReconError from an error chain.
func AsReconError(err error) (*ReconError, bool) {
	var re *ReconError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
