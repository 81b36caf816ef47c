// Package gameerr defines the error taxonomy shared by the engine, the
// session layer and the transports.
//
// Every failure a caller can act on carries a Kind:
//   - KindValidation: the action is illegal (bad move, not your turn, full roster)
//   - KindState: the action does not fit the game's status
//   - KindNotFound: unknown game or player
//   - KindConflict: concurrent writers exhausted the retry budget
//
// Kinds compare with errors.Is against the package sentinels, so callers can
// branch without string matching:
//
//	if errors.Is(err, gameerr.ErrValidation) { ... }
package gameerr

import (
	"errors"
	"fmt"
)

// Kind classifies a game error
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindState      Kind = "state"
)

// Sentinels for errors.Is comparisons by kind
var (
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict   = &Error{Kind: KindConflict, Message: "conflicting update"}
	ErrNotFound   = &Error{Kind: KindNotFound, Message: "not found"}
	ErrState      = &Error{Kind: KindState, Message: "invalid state"}
)

// Error is a classified game error with optional metadata and cause
type Error struct {
	Kind     Kind
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// State builds a KindState error.
func State(format string, args ...any) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict wraps the last conflicting cause into a KindConflict error.
func Conflict(message string, cause error) *Error {
	return &Error{Kind: KindConflict, Message: message, Cause: cause}
}

// WithMetadata attaches a key/value pair and returns e for chaining
func (e *Error) WithMetadata(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// IsTerminal reports whether err must be returned to the caller without retry
// or broadcast: validation, state and not-found failures.
func IsTerminal(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindState, KindNotFound:
		return true
	}
	return false
}
