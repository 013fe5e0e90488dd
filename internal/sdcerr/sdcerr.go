// Package sdcerr implements the error taxonomy from spec.md §7: Validation,
// NotFound, NonCritical, Fatal, and SyncApply. Code that wraps an
// underlying error with fmt.Errorf("...: %w", err) throughout the rest of
// the tree (matching the teacher's plain-wrapping style) uses these
// sentinel kinds only at the boundaries where callers must distinguish
// "downgrade to warning" from "fail the job."
package sdcerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation-policy decisions.
type Kind string

// Error kinds per spec.md §7.
const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindNonCritical Kind = "non_critical" // per-file I/O error; downgraded, recorded as a warning
	KindFatal       Kind = "fatal"        // database error; escalates the enclosing job to Failed
	KindSyncApply   Kind = "sync_apply"   // offending log entry skipped, error recorded with its HLC
)

// Error wraps an underlying cause with a Kind and a human-readable subject
// (the failing action kind, path, or UUID per spec.md §7's user-visible
// failure contract).
type Error struct {
	Kind    Kind
	Subject string // entity path or UUID
	Action  string // failing action kind, e.g. "location.index"
	Cause   error
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %s: %v", e.Action, e.Kind, e.Cause)
	}

	return fmt.Sprintf("%s: %s %q: %v", e.Action, e.Kind, e.Subject, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a classified Error.
func New(kind Kind, action, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Action: action, Cause: cause}
}

// Validation wraps cause as a KindValidation error.
func Validation(action, subject string, cause error) *Error {
	return New(KindValidation, action, subject, cause)
}

// NotFound wraps cause as a KindNotFound error.
func NotFound(action, subject string, cause error) *Error {
	return New(KindNotFound, action, subject, cause)
}

// NonCritical wraps cause as a KindNonCritical error — recorded on the
// enclosing job's warning list, the offending item skipped, processing
// continues.
func NonCritical(action, subject string, cause error) *Error {
	return New(KindNonCritical, action, subject, cause)
}

// Fatal wraps cause as a KindFatal error — escalates the enclosing job to
// Failed.
func Fatal(action, subject string, cause error) *Error {
	return New(KindFatal, action, subject, cause)
}

// SyncApply wraps cause as a KindSyncApply error — the offending log entry
// is skipped and sync continues.
func SyncApply(action, subject string, cause error) *Error {
	return New(KindSyncApply, action, subject, cause)
}

// Is reports whether err (or something it wraps) is a *Error of the given
// Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}

	return false
}
