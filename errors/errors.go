// Package errors provides the error taxonomy and wrapping helpers used across moodlink.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may succeed on another attempt
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents errors that need outside action before anything can succeed
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var (
	// Lifecycle errors
	ErrAlreadyStarted = errors.New("already started")
	ErrShuttingDown   = errors.New("shutting down")

	// Link errors
	ErrNotConnected       = errors.New("link not connected")
	ErrIOFailure          = errors.New("link i/o failure")
	ErrPermissionDenied   = errors.New("permission denied: link transport is unavailable or not authorized")
	ErrNoPairedPeers      = errors.New("no paired devices found")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
	ErrLinkFailed         = errors.New("link failed; reset required")
	ErrServiceMismatch    = errors.New("service identifier mismatch")

	// Decode errors
	ErrMalformed = errors.New("malformed frame")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// Resource errors
	ErrQueueFull = errors.New("queue full")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// New returns an unclassified error with the given text.
func New(text string) error { return errors.New(text) }

// IsTransient checks if an error is transient and another attempt may succeed
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	if errors.Is(err, ErrIOFailure) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrNoPairedPeers) ||
		errors.Is(err, ErrQueueFull) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsFatal checks if an error requires outside action before retrying
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrMaxRetriesExceeded) ||
		errors.Is(err, ErrLinkFailed)
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrServiceMismatch)
}

// Classify returns the error class for an error.
// Unknown errors default to transient.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ErrorTransient
	case IsFatal(err):
		return ErrorFatal
	case IsInvalid(err):
		return ErrorInvalid
	default:
		return ErrorTransient
	}
}

func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	return wrapClassified(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	return wrapClassified(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	return wrapClassified(ErrorInvalid, err, component, method, action)
}

func wrapClassified(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(class, wrapped, component, method, wrapped.Error())
}
