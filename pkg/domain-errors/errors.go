// Package domainerrors defines the typed error vocabulary for the sale engine.
//
// Services return these errors so transport layers can translate codes into
// HTTP statuses without string matching. Stores return sentinel errors
// (pkg/platform/sentinel) which services wrap into domain errors here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// Caller lacks the role the operation requires.
	CodeUnauthorized Code = "unauthorized"

	// Phase timing or ordering violated (inactive sale, overlapping phase,
	// inverted window).
	CodeInvalidWindow Code = "invalid_window"

	// Per-call, per-account, or aggregate cap exceeded.
	CodeCapExceeded Code = "cap_exceeded"

	// Zero amount, or an amount that would exceed the available or unlocked
	// balance.
	CodeInvalidAmount Code = "invalid_amount"

	// Operation on a lock that does not exist, is claimed, or is already
	// expired where not permitted.
	CodeUnknownOrExpiredLock Code = "unknown_or_expired_lock"

	// Validity or start time not strictly in the future.
	CodePastTimestamp Code = "past_timestamp"

	// Infrastructure codes shared across modules.
	CodeValidation Code = "validation"
	CodeBadRequest Code = "bad_request"
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	CodeInternal   Code = "internal"
	CodeTimeout    Code = "timeout"
)

// DomainError carries a code, a human-readable message, and an optional cause.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// New constructs a domain error with no cause.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err returns
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or any error in its chain carries the code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost domain error code, or CodeInternal when err is
// not a domain error.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is forwards to errors.Is; kept so call sites importing this package do not
// also need the stdlib errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
