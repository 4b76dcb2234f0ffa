// Package addonerr defines the stable, machine-checkable error taxonomy
// shared by every stage of the addon pipeline: analysis, planning,
// installation, scenery indexing and ordering, and update planning.
package addonerr

import (
	"errors"
	"fmt"
)

// Kind is one of the stable error categories. Callers should compare
// kinds with errors.Is against the Err* sentinels below, never by
// string-matching Error().
type Kind string

const (
	BadInputPath      Kind = "BadInputPath"
	UnsupportedFormat Kind = "UnsupportedFormat"
	WrongPassword     Kind = "WrongPassword"
	ArchiveCorrupt    Kind = "ArchiveCorrupt"
	ArchiveBomb       Kind = "ArchiveBomb"
	UnsafeEntryName   Kind = "UnsafeEntryName"
	InsufficientSpace Kind = "InsufficientSpace"
	PermissionDenied  Kind = "PermissionDenied"
	Conflict          Kind = "Conflict"
	LockedTarget      Kind = "LockedTarget"
	Cancelled         Kind = "Cancelled"
	Skipped           Kind = "Skipped"
	PartiallyApplied  Kind = "PartiallyApplied"
	IndexCorrupt      Kind = "IndexCorrupt"
	ManifestParse     Kind = "ManifestParse"
	Internal          Kind = "Internal"
)

// Error is a user-facing error carrying a stable Kind, a human message,
// and optional location context and remediation suggestion.
type Error struct {
	Kind       Kind
	Message    string
	Path       string // file or archive entry the error concerns, if any
	Suggestion string
	Underlying error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap supports errors.Is/As against the underlying cause.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is comparisons by Kind, both against another
// *Error and against the package's Err* sentinels (which are
// themselves *Error values with no message).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithPath returns a copy of e with Path set.
func (e *Error) WithPath(path string) *Error {
	n := *e
	n.Path = path
	return &n
}

// WithSuggestion returns a copy of e with Suggestion set.
func (e *Error) WithSuggestion(s string) *Error {
	n := *e
	n.Suggestion = s
	return &n
}

// Wrap returns a copy of e wrapping cause as the underlying error.
func (e *Error) Wrap(cause error) *Error {
	n := *e
	n.Underlying = cause
	return &n
}

// Sentinels, one per Kind, for use with errors.Is. They carry no
// message; construct a real *Error with New/Wrap for anything
// user-facing.
var (
	ErrBadInputPath      = &Error{Kind: BadInputPath}
	ErrUnsupportedFormat = &Error{Kind: UnsupportedFormat}
	ErrWrongPassword     = &Error{Kind: WrongPassword}
	ErrArchiveCorrupt    = &Error{Kind: ArchiveCorrupt}
	ErrArchiveBomb       = &Error{Kind: ArchiveBomb}
	ErrUnsafeEntryName   = &Error{Kind: UnsafeEntryName}
	ErrInsufficientSpace = &Error{Kind: InsufficientSpace}
	ErrPermissionDenied  = &Error{Kind: PermissionDenied}
	ErrConflict          = &Error{Kind: Conflict}
	ErrLockedTarget      = &Error{Kind: LockedTarget}
	ErrCancelled         = &Error{Kind: Cancelled}
	ErrSkipped           = &Error{Kind: Skipped}
	ErrPartiallyApplied  = &Error{Kind: PartiallyApplied}
	ErrIndexCorrupt      = &Error{Kind: IndexCorrupt}
	ErrManifestParse     = &Error{Kind: ManifestParse}
	ErrInternal          = &Error{Kind: Internal}
)

// Of extracts the Kind of err, defaulting to Internal if err does not
// carry one. It never reports a more specific kind than what the chain
// actually declares, so a generic error is always Internal rather than
// mis-surfacing a default guess.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// List accumulates multiple *Error values, for reporting every
// problem found during a single analysis pass rather than stopping at
// the first one.
type List struct {
	errs []*Error
}

// NewList creates an empty List.
func NewList() *List {
	return &List{}
}

// Add appends err to the list if non-nil.
func (l *List) Add(err *Error) {
	if err != nil {
		l.errs = append(l.errs, err)
	}
}

// HasErrors reports whether any error was added.
func (l *List) HasErrors() bool {
	return len(l.errs) > 0
}

// Errors returns a copy of the accumulated errors.
func (l *List) Errors() []*Error {
	out := make([]*Error, len(l.errs))
	copy(out, l.errs)
	return out
}

func (l *List) Error() string {
	switch len(l.errs) {
	case 0:
		return ""
	case 1:
		return l.errs[0].Error()
	default:
		msg := fmt.Sprintf("%d errors occurred:\n", len(l.errs))
		for i, e := range l.errs {
			msg += fmt.Sprintf("  %d. %s\n", i+1, e.Error())
		}
		return msg
	}
}

// AsError returns l as an error, or nil if it is empty.
func (l *List) AsError() error {
	if !l.HasErrors() {
		return nil
	}
	return l
}
