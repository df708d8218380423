package engine

import (
	"errors"
	"fmt"
)

// EngineError is an error raised by the engine itself, as opposed to the
// reorder errors (BUSY, DRAG_ACTIVE, PERSIST_FAILED) it passes through.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// List identifies the affected list, if any.
	List string
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeStopped indicates the engine no longer accepts commands.
	ErrCodeStopped EngineErrorCode = "ENGINE_STOPPED"

	// ErrCodeNotFound indicates a list that has no records and is not declared.
	ErrCodeNotFound EngineErrorCode = "NOT_FOUND"

	// ErrCodeInvalidCommand indicates a malformed command.
	ErrCodeInvalidCommand EngineErrorCode = "INVALID_COMMAND"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.List != "" {
		return fmt.Sprintf("%s: %s (list=%s)", e.Code, e.Message, e.List)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a NOT_FOUND engine error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsStopped reports whether err is an ENGINE_STOPPED engine error.
func IsStopped(err error) bool {
	return hasCode(err, ErrCodeStopped)
}

// IsInvalidCommand reports whether err is an INVALID_COMMAND engine error.
func IsInvalidCommand(err error) bool {
	return hasCode(err, ErrCodeInvalidCommand)
}

func hasCode(err error, code EngineErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

func newStoppedError() *EngineError {
	return &EngineError{Code: ErrCodeStopped, Message: "engine is not running"}
}

func newNotFoundError(list string) *EngineError {
	return &EngineError{Code: ErrCodeNotFound, Message: "list has no records", List: list}
}

func newInvalidCommandError(list, message string) *EngineError {
	return &EngineError{Code: ErrCodeInvalidCommand, Message: message, List: list}
}
