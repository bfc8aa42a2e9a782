package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = New(ErrCodeNotFound, "resource not found")
	ErrValidation       = New(ErrCodeValidation, "validation error")
	ErrInvalidOperation = New(ErrCodeInvalidOperation, "invalid operation")
	ErrHTTPClient       = New(ErrCodeHTTPClient, "http client error")
	ErrSystem           = New(ErrCodeSystemError, "system error")

	// ErrInvalidPlan marks every configuration error found in a plan definition.
	// A computation that hits one is aborted for the subscription at hand.
	ErrInvalidPlan = New(ErrCodeInvalidPlan, "invalid plan configuration")

	ErrUnsupportedRecurrenceUnit  = New(ErrCodeUnsupportedRecurrenceUnit, "unsupported recurrence unit")
	ErrInvalidRecurrenceSpec      = New(ErrCodeInvalidRecurrenceSpec, "invalid recurrence specification")
	ErrUnknownBundleOperator      = New(ErrCodeUnknownBundleOperator, "unknown bundle operator")
	ErrMissingAmount              = New(ErrCodeMissingAmount, "neither amount nor percent defined")
	ErrUnsupportedIterationMetric = New(ErrCodeUnsupportedIterationMetric, "unsupported iteration metric")

	// ErrCurrencyMismatch is raised when revenue items with different currencies
	// are merged. No currency conversion is ever attempted.
	ErrCurrencyMismatch = New(ErrCodeCurrencyMismatch, "currency mismatch")

	planErrors = []error{
		ErrUnsupportedRecurrenceUnit,
		ErrInvalidRecurrenceSpec,
		ErrUnknownBundleOperator,
		ErrMissingAmount,
		ErrUnsupportedIterationMetric,
	}
)

const (
	ErrCodeHTTPClient       = "http_client_error"
	ErrCodeSystemError      = "system_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"

	ErrCodeInvalidPlan                = "invalid_plan"
	ErrCodeUnsupportedRecurrenceUnit  = "unsupported_recurrence_unit"
	ErrCodeInvalidRecurrenceSpec      = "invalid_recurrence_spec"
	ErrCodeUnknownBundleOperator      = "unknown_bundle_operator"
	ErrCodeMissingAmount              = "missing_amount"
	ErrCodeUnsupportedIterationMetric = "unsupported_iteration_metric"
	ErrCodeCurrencyMismatch           = "currency_mismatch"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// New creates a new InternalError
func New(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is reports whether err matches target, including sentinels attached
// with Mark. The standard library errors.Is does not see marks.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsHTTPClient checks if an error is an http client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

// IsInvalidPlan reports whether err is a plan configuration error of any kind
func IsInvalidPlan(err error) bool {
	if errors.Is(err, ErrInvalidPlan) {
		return true
	}
	for _, e := range planErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsSystem checks if an error is a system error
func IsSystem(err error) bool {
	return errors.Is(err, ErrSystem)
}

func IsUnsupportedRecurrenceUnit(err error) bool {
	return errors.Is(err, ErrUnsupportedRecurrenceUnit)
}

func IsInvalidRecurrenceSpec(err error) bool {
	return errors.Is(err, ErrInvalidRecurrenceSpec)
}

func IsUnknownBundleOperator(err error) bool {
	return errors.Is(err, ErrUnknownBundleOperator)
}

func IsMissingAmount(err error) bool {
	return errors.Is(err, ErrMissingAmount)
}

func IsUnsupportedIterationMetric(err error) bool {
	return errors.Is(err, ErrUnsupportedIterationMetric)
}

// IsCurrencyMismatch checks if an error is a currency mismatch error
func IsCurrencyMismatch(err error) bool {
	return errors.Is(err, ErrCurrencyMismatch)
}
