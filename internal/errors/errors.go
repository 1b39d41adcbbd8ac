// Package errors provides structured error types for autopilot.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for autopilot.
const (
	// Initialization errors
	CodeNotInitialized     Code = "AUTOPILOT_NOT_INITIALIZED"
	CodeAlreadyInitialized Code = "AUTOPILOT_ALREADY_INITIALIZED"

	// Applicant errors
	CodeApplicantNotFound Code = "APPLICANT_NOT_FOUND"
	CodeApplicantNoOwner  Code = "APPLICANT_NO_OWNER"

	// Job errors
	CodeLockBusy Code = "LOCK_BUSY"

	// Agent errors
	CodeAgentUnavailable Code = "AGENT_UNAVAILABLE"
	CodeAgentTimeout     Code = "AGENT_TIMEOUT"
	CodeAgentMalformed   Code = "AGENT_MALFORMED_RESULT"

	// Store errors
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
	CodeConfigMissing Code = "CONFIG_MISSING"
)

// Error is the structured error type for autopilot.
type Error struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *Error) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n  Why: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n  Fix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// New creates a structured error.
func New(code Code, what string) *Error {
	return &Error{Code: code, What: what}
}

// Newf creates a structured error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, What: fmt.Sprintf(format, args...)}
}

// Wrap wraps a cause in a structured error.
func Wrap(code Code, what string, cause error) *Error {
	return &Error{Code: code, What: what, Cause: cause}
}

// WithWhy attaches an explanation.
func (e *Error) WithWhy(why string) *Error {
	e.Why = why
	return e
}

// WithFix attaches a suggested fix.
func (e *Error) WithFix(fix string) *Error {
	e.Fix = fix
	return e
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
