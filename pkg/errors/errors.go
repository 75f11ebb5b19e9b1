package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected indicates that the shell is not connected to the host
	ErrNotConnected = errors.New("not connected to host")

	// ErrTimeout indicates that a host query timed out
	ErrTimeout = errors.New("host query timed out")

	// ErrHostRejected indicates that the host answered a query with an error status
	ErrHostRejected = errors.New("host rejected query")

	// ErrNoEntryPoint indicates that no entry point matched the dispatch target
	ErrNoEntryPoint = errors.New("no entry point registered")
)

// Error codes carried by Error. The code decides how the shell treats a
// failure: configuration and resolution errors are raised by the shell itself
// before worker logic runs, worker errors surface from the invoked entry point.
const (
	CodeConfiguration = "configuration"
	CodeResolution    = "resolution"
	CodeWorker        = "worker"
)

// Error represents a structured shell error
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfiguration creates an error for malformed launch arguments or settings
func NewConfiguration(message string, err error) *Error {
	return &Error{
		Code:    CodeConfiguration,
		Message: message,
		Err:     err,
	}
}

// NewResolution creates an error for an entry point that could not be located
func NewResolution(message string, err error) *Error {
	return &Error{
		Code:    CodeResolution,
		Message: message,
		Err:     err,
	}
}

// NewWorker creates an error for a failure raised by invoked worker logic
func NewWorker(message string, err error) *Error {
	return &Error{
		Code:    CodeWorker,
		Message: message,
		Err:     err,
	}
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return hasCode(err, CodeConfiguration)
}

// IsResolution checks if an error is a resolution error
func IsResolution(err error) bool {
	return hasCode(err, CodeResolution)
}

// IsWorker checks if an error is a worker error
func IsWorker(err error) bool {
	return hasCode(err, CodeWorker)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsNotConnected checks if an error is a not connected error
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

func hasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
