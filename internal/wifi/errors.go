package wifi

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeDriver indicates the driver failed to come up or to accept a
	// configuration. These are not recoverable.
	ErrTypeDriver ErrorType = iota
	// ErrTypeTimeout indicates the station did not get an address in time
	ErrTypeTimeout
	// ErrTypeInvalidArgument indicates a malformed join request
	ErrTypeInvalidArgument
	// ErrTypeCanceled indicates the caller's context ended the wait
	ErrTypeCanceled
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeDriver:
		return "Driver Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeInvalidArgument:
		return "Invalid Argument"
	case ErrTypeCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by Manager operations.
type Error struct {
	Type    ErrorType // Category of error
	Op      string    // Operation that failed (e.g. "start", "join")
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s (caused by: %v)", e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

func newDriverError(op string, err error) *Error {
	return &Error{Type: ErrTypeDriver, Op: op, Message: "driver call failed", Err: err}
}

func newInvalidArgument(message string) *Error {
	return &Error{Type: ErrTypeInvalidArgument, Op: "join", Message: message}
}

func isType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// IsTimeout checks if a join ended without the station getting an address
func IsTimeout(err error) bool { return isType(err, ErrTypeTimeout) }

// IsDriverError checks if an error came from driver bring-up or configuration
func IsDriverError(err error) bool { return isType(err, ErrTypeDriver) }

// IsInvalidArgument checks if a join request was rejected before any driver call
func IsInvalidArgument(err error) bool { return isType(err, ErrTypeInvalidArgument) }

// IsCanceled checks if a join wait was cut short by its context
func IsCanceled(err error) bool { return isType(err, ErrTypeCanceled) }
