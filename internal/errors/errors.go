package errors

import "errors"

// Code is a machine-readable error code sent to clients.
type Code string

const (
	CodeInvalidAction   Code = "invalid_action"
	CodeWrongPhase      Code = "wrong_phase"
	CodeNotEligible     Code = "not_eligible"
	CodeDuplicateAction Code = "duplicate_action"
	CodeNoOpenSlot      Code = "no_open_slot"
	CodeInvalidTarget   Code = "invalid_target"
	CodeInvalidRoster   Code = "invalid_roster"
	CodeGameNotFound    Code = "game_not_found"
	CodeProviderFailure Code = "provider_failure"
	CodeInternal        Code = "internal"
)

// Retryable reports whether a client may resend the same action later.
func (c Code) Retryable() bool {
	switch c {
	case CodeNoOpenSlot, CodeWrongPhase:
		return true
	default:
		return false
	}
}

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message
	Metadata map[string]string // Additional context
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the code from err, falling back to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Sentinels for errors.Is comparisons.
var (
	ErrWrongPhase      = New(CodeWrongPhase, "action not allowed in current phase")
	ErrNotEligible     = New(CodeNotEligible, "player is not eligible for this action")
	ErrDuplicateAction = New(CodeDuplicateAction, "action already submitted")
	ErrNoOpenSlot      = New(CodeNoOpenSlot, "no open slot for this action")
	ErrInvalidTarget   = New(CodeInvalidTarget, "invalid vote target")
	ErrInvalidRoster   = New(CodeInvalidRoster, "invalid roster")
	ErrGameNotFound    = New(CodeGameNotFound, "game not found")
)
