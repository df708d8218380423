package reorder

import (
	"errors"
	"fmt"
)

// Error is returned by reorder operations that the caller should surface.
//
// Stale identifiers and self-targeted drops are not errors: they are
// filtered out silently. Nothing in this package is fatal; every Error leaves
// the Session usable.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// List names the session the error came from, if known.
	List string

	// ID identifies the record involved, if any.
	ID string

	// Err is the underlying cause (e.g. the Persister's error).
	Err error
}

// ErrorCode categorizes reorder errors.
type ErrorCode string

const (
	// CodeBusy means a commit is already in flight for the list.
	CodeBusy ErrorCode = "BUSY"

	// CodeDragActive means a drag gesture is already running for the list.
	CodeDragActive ErrorCode = "DRAG_ACTIVE"

	// CodeNotPermutation means a proposed order adds, drops, or repeats ids.
	CodeNotPermutation ErrorCode = "NOT_PERMUTATION"

	// CodeDuplicateID means an authoritative snapshot repeats an id.
	CodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// CodePersistFailed means the Persister rejected the instruction set.
	CodePersistFailed ErrorCode = "PERSIST_FAILED"

	// CodeGroupViolation means two groups would interleave.
	CodeGroupViolation ErrorCode = "GROUP_VIOLATION"
)

// Sentinels for errors.Is. They match any *Error with the same Code.
var (
	ErrBusy           = &Error{Code: CodeBusy, Message: "order is being saved"}
	ErrDragActive     = &Error{Code: CodeDragActive, Message: "a drag is already in progress"}
	ErrNotPermutation = &Error{Code: CodeNotPermutation, Message: "order is not a permutation of the list"}
	ErrDuplicateID    = &Error{Code: CodeDuplicateID, Message: "duplicate record id"}
	ErrPersistFailed  = &Error{Code: CodePersistFailed, Message: "saving order failed"}
	ErrGroupViolation = &Error{Code: CodeGroupViolation, Message: "groups would interleave"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.List != "" {
		msg += fmt.Sprintf(" (list=%s)", e.List)
	}
	if e.ID != "" {
		msg += fmt.Sprintf(" (id=%s)", e.ID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// IsBusy reports whether err is a single-flight rejection.
// Uses errors.As to handle wrapped errors.
func IsBusy(err error) bool {
	return hasCode(err, CodeBusy)
}

// IsPersistError reports whether err came from a failed Persist call.
func IsPersistError(err error) bool {
	return hasCode(err, CodePersistFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newError(code ErrorCode, list, id, message string) *Error {
	return &Error{Code: code, List: list, ID: id, Message: message}
}
