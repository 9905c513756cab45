package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeStorage ErrorType = "storage"
	ErrorTypeDecode  ErrorType = "decode"
	ErrorTypeConfig  ErrorType = "config"
	ErrorTypeUnknown ErrorType = "unknown"
)

// NoWorker is used for errors that are not tied to one worker's checkpoint
const NoWorker = -1

// Error represents a checkpoint or setup failure with type information
type Error struct {
	Type     ErrorType
	Op       string
	WorkerID int
	Err      error
}

// New creates a typed error for the given operation and worker
func New(errorType ErrorType, op string, workerID int, err error) *Error {
	return &Error{Type: errorType, Op: op, WorkerID: workerID, Err: err}
}

func (e *Error) Error() string {
	if e.WorkerID == NoWorker {
		return fmt.Sprintf("%s error during %s: %v", e.Type, e.Op, e.Err)
	}
	return fmt.Sprintf("%s error during %s (worker %d): %v", e.Type, e.Op, e.WorkerID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeStorage:
		return true
	case ErrorTypeDecode, ErrorTypeConfig:
		return false
	default:
		return false
	}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}
