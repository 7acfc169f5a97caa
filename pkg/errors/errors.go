// Package errors defines the application error taxonomy for the synthesis
// engine. Errors carry a type so callers can decide between aborting a run,
// skipping a suggestion slot, or degrading gracefully.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "VALIDATION"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypePrecondition    ErrorType = "PRECONDITION"
	ErrorTypeGenerationParse ErrorType = "GENERATION_PARSE"
	ErrorTypeRemoteService   ErrorType = "REMOTE_SERVICE"
	ErrorTypePersistence     ErrorType = "PERSISTENCE"
	ErrorTypeInternal        ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	// Raw holds the unparsed remote response for GENERATION_PARSE errors,
	// kept for diagnosis and never re-fed to the model.
	Raw string
	Err error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewPrecondition creates a precondition error. Precondition failures abort
// a synthesis run early with an empty result.
func NewPrecondition(message string) error {
	return &AppError{Type: ErrorTypePrecondition, Message: message}
}

// NewGenerationParse creates a parse error for unusable generative-text
// output. The raw response travels with the error for diagnosis.
func NewGenerationParse(message, raw string, err error) error {
	return &AppError{Type: ErrorTypeGenerationParse, Message: message, Raw: raw, Err: err}
}

// NewRemoteService creates an error for a failed embedding or generation call
func NewRemoteService(message string, err error) error {
	return &AppError{Type: ErrorTypeRemoteService, Message: message, Err: err}
}

// NewPersistence creates a fatal durable-store write error
func NewPersistence(message string, err error) error {
	return &AppError{Type: ErrorTypePersistence, Message: message, Err: err}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Raw:     appErr.Raw,
			Err:     appErr.Err,
		}
	}

	// Otherwise, create an internal error
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsValidation reports whether the error is a validation error
func IsValidation(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFound reports whether the error is a not found error
func IsNotFound(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsPrecondition reports whether the error is a precondition failure
func IsPrecondition(err error) bool { return isType(err, ErrorTypePrecondition) }

// IsGenerationParse reports whether the error is a generation parse failure
func IsGenerationParse(err error) bool { return isType(err, ErrorTypeGenerationParse) }

// IsRemoteService reports whether the error is a remote service failure
func IsRemoteService(err error) bool { return isType(err, ErrorTypeRemoteService) }

// IsPersistence reports whether the error is a persistence failure
func IsPersistence(err error) bool { return isType(err, ErrorTypePersistence) }

// RawResponse extracts the raw remote response from a generation parse
// error, if present.
func RawResponse(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Raw
	}
	return ""
}
