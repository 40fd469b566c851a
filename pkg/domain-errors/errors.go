// Package domainerrors defines the coded errors returned by the registry
// core. Every command failure carries one of these codes so callers can map
// it to a distinct, actionable message instead of a generic failure.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a failure class. Domain codes are recoverable by the
// caller; none of them is fatal inside the core.
type Code string

const (
	// Identity registry failures.
	CodeAlreadyRegistered   Code = "already_registered"
	CodeDuplicateNationalID Code = "duplicate_national_id"
	CodeUnknownNationalID   Code = "unknown_national_id"

	// Land ledger failures.
	CodeInvalidID            Code = "invalid_id"
	CodeDuplicateLandID      Code = "duplicate_land_id"
	CodeMissingRequiredField Code = "missing_required_field"
	CodeAlreadyDecided       Code = "already_decided"
	CodeMissingReason        Code = "missing_reason"
	CodeNotRegistered        Code = "not_registered"

	// Transfer workflow failures.
	CodeTransferAlreadyPending Code = "transfer_already_pending"
	CodeSameOwner              Code = "same_owner"

	// Shared failures.
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeValidation   Code = "validation_failed"
	CodeBadRequest   Code = "bad_request"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.cause
		e = nil
	}
	return false
}

// CodeOf returns the outermost code of err, or CodeInternal when err carries
// no code at all.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost coded message of err, or an empty string.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
