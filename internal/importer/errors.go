package importer

import (
	"errors"
	"fmt"
)

// ImportError represents a fatal failure of an import run.
//
// All import errors are terminal; nothing is retried.
type ImportError struct {
	// Code identifies the error category.
	Code ImportErrorCode

	// Message is a human-readable description.
	Message string

	// State is the last state reached before the failure.
	State State

	// Err is the underlying cause, if any.
	Err error
}

// ImportErrorCode categorizes import errors.
type ImportErrorCode string

const (
	// ErrCodeConfiguration indicates unknown, missing or malformed keywords.
	ErrCodeConfiguration ImportErrorCode = "CONFIGURATION"

	// ErrCodeConversion indicates the external conversion step failed.
	ErrCodeConversion ImportErrorCode = "CONVERSION"

	// ErrCodeRead indicates the converted distribution could not be read.
	ErrCodeRead ImportErrorCode = "READ"

	// ErrCodeCollective indicates a collective operation failed.
	ErrCodeCollective ImportErrorCode = "COLLECTIVE"

	// ErrCodeOutput indicates the analysis output could not be written.
	ErrCodeOutput ImportErrorCode = "OUTPUT"
)

// Error implements the error interface.
func (e *ImportError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.State != "" {
		msg += fmt.Sprintf(" (after %s)", e.State)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ImportError) Unwrap() error { return e.Err }

// IsConfigurationError returns true if the error is a keyword error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsConversionError returns true if the external conversion failed.
// Uses errors.As to handle wrapped errors.
func IsConversionError(err error) bool {
	return hasCode(err, ErrCodeConversion)
}

// CodeOf returns the code of the ImportError in err's chain, or "".
func CodeOf(err error) ImportErrorCode {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

func hasCode(err error, code ImportErrorCode) bool {
	return CodeOf(err) == code
}

func newError(code ImportErrorCode, state State, msg string, err error) *ImportError {
	return &ImportError{Code: code, Message: msg, State: state, Err: err}
}
