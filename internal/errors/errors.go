// Package errors defines stable error codes for all advisor failure modes.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidRequest indicates a malformed or empty analysis request
	InvalidRequest ErrorCode = "INVALID_REQUEST"
	// CacheUnavailable indicates a cache backend is not reachable
	CacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	// LeaseFailed indicates the computing caller's analysis pass faulted
	// after acquiring the dedup lease; waiters receive this instead of a
	// false cached result
	LeaseFailed ErrorCode = "LEASE_FAILED"
	// RuleFault indicates a single rule evaluator failed internally;
	// isolated by the rule engine and never aborts an analysis
	RuleFault ErrorCode = "RULE_FAULT"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AdvisorError represents an advisor error with a stable code and message
type AdvisorError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new AdvisorError
func New(code ErrorCode, message string, cause error) *AdvisorError {
	return &AdvisorError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *AdvisorError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AdvisorError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AdvisorError) WithDetails(details interface{}) *AdvisorError {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from err, or InternalError when err carries
// no advisor code.
func CodeOf(err error) ErrorCode {
	var ae *AdvisorError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	var ae *AdvisorError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
