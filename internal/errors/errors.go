// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidTermSheet = errors.New("invalid term sheet")
	ErrUnsupportedKind  = errors.New("unsupported bond kind")
	ErrDegeneratePrice  = errors.New("dirty price is zero or not finite")
	ErrInvalidCurve     = errors.New("invalid price/yield curve request")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDataNotFound     = errors.New("data not found")
	ErrDatabaseError    = errors.New("database error")
	ErrInputValidation  = errors.New("input validation failed")
)

// ValidationError represents a validation error on a single field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ValidationErrors collects every field that failed validation.
// It unwraps to ErrInvalidTermSheet so callers can test with Is.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return fmt.Sprintf("%v: %v", ErrInvalidTermSheet, v[0])
	}
	return fmt.Sprintf("%v: %d fields failed validation, first: %v", ErrInvalidTermSheet, len(v), v[0])
}

func (v ValidationErrors) Unwrap() error {
	return ErrInvalidTermSheet
}

// ComputationError represents a measure that cannot be computed from the
// current inputs, typically a division by a zero or non-finite price.
type ComputationError struct {
	Measure string
	Value   float64
	Err     error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation error [%s] (value: %g): %v", e.Measure, e.Value, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// NewComputationError creates a new ComputationError.
func NewComputationError(measure string, value float64, err error) *ComputationError {
	return &ComputationError{
		Measure: measure,
		Value:   value,
		Err:     err,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	ID       string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.ID, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.ID, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, id, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		ID:       id,
		Message:  message,
		Err:      err,
	}
}

// RowError ties an error to a line of a batch input file.
type RowError struct {
	Row int
	ID  string
	Err error
}

func (e *RowError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("row %d (%s): %v", e.Row, e.ID, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
