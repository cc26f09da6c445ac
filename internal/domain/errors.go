package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the failure kinds surfaced to callers.
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrNoCandidate    = errors.New("no candidate model")
	ErrBudgetExceeded = errors.New("budget exceeded")
	ErrSafetyRejected = errors.New("safety rejection")
	ErrInference      = errors.New("inference failed")
	ErrModelNotFound  = errors.New("model not found")
)

// ErrorKind is the machine-readable classification of an Error.
type ErrorKind string

const (
	KindInvalidConfig  ErrorKind = "invalid_config"
	KindNoCandidate    ErrorKind = "no_candidate"
	KindBudgetExceeded ErrorKind = "budget_exceeded"
	KindSafetyRejected ErrorKind = "safety_rejected"
	KindInference      ErrorKind = "inference_error"
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidConfig:  ErrInvalidConfig,
	KindNoCandidate:    ErrNoCandidate,
	KindBudgetExceeded: ErrBudgetExceeded,
	KindSafetyRejected: ErrSafetyRejected,
	KindInference:      ErrInference,
}

// Error is a user-visible failure with a kind, explanation and optional remedy.
type Error struct {
	Kind    ErrorKind
	Message string
	Remedy  string
	Err     error
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// WithRemedy attaches a suggested remedial action.
func (e *Error) WithRemedy(remedy string) *Error {
	e.Remedy = remedy
	return e
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Remedy != "" {
		msg += " (suggestion: " + e.Remedy + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf extracts the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
