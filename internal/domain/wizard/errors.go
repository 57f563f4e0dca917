package wizard

import (
	"errors"
	"fmt"
)

// ErrorCode identifies well-known error categories raised by the wizard
// domain and the controller built on top of it.
type ErrorCode string

const (
	ErrCodeDuplicateStep  ErrorCode = "DUPLICATE_STEP_ID"
	ErrCodeInvalidStep    ErrorCode = "INVALID_STEP"
	ErrCodeRegistryFrozen ErrorCode = "REGISTRY_FROZEN"
	ErrCodePredicate      ErrorCode = "PREDICATE_ERROR"
	ErrCodeEmptyStepGraph ErrorCode = "EMPTY_STEP_GRAPH"
	ErrCodeUnknownSchema  ErrorCode = "UNKNOWN_SCHEMA_REF"
	ErrCodeIncompatible   ErrorCode = "INCOMPATIBLE_SNAPSHOT"
	ErrCodeGateBlocked    ErrorCode = "GATE_BLOCKED"
	ErrCodeNoPreviousStep ErrorCode = "NO_PREVIOUS_STEP"
	ErrCodeInvalidJump    ErrorCode = "INVALID_JUMP"
	ErrCodeCompleted      ErrorCode = "WIZARD_COMPLETED"
	ErrCodeReentrant      ErrorCode = "REENTRANT_CALL"
	ErrCodeInvalidPath    ErrorCode = "INVALID_FIELD_PATH"
	ErrCodeInvalidFlow    ErrorCode = "INVALID_FLOW"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeCancelled      ErrorCode = "CANCELLED"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// DomainError represents a typed error enriched with contextual data.
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As usage.
func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any DomainError carrying the same code, so sentinel values such
// as ErrInvalidJump can be used with errors.Is.
func (e *DomainError) Is(target error) bool {
	var domainErr *DomainError
	if !errors.As(target, &domainErr) {
		return false
	}
	return e.Code == domainErr.Code
}

// WithContext clones the error with additional contextual metadata.
func (e *DomainError) WithContext(ctx map[string]interface{}) *DomainError {
	if e == nil {
		return nil
	}
	merged := make(map[string]interface{}, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Context: merged,
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrDuplicateStepID      = &DomainError{Code: ErrCodeDuplicateStep}
	ErrPredicate            = &DomainError{Code: ErrCodePredicate}
	ErrEmptyStepGraph       = &DomainError{Code: ErrCodeEmptyStepGraph}
	ErrUnknownSchemaRef     = &DomainError{Code: ErrCodeUnknownSchema}
	ErrIncompatibleSnapshot = &DomainError{Code: ErrCodeIncompatible}
	ErrGateBlocked          = &DomainError{Code: ErrCodeGateBlocked}
	ErrNoPreviousStep       = &DomainError{Code: ErrCodeNoPreviousStep}
	ErrInvalidJump          = &DomainError{Code: ErrCodeInvalidJump}
	ErrCompleted            = &DomainError{Code: ErrCodeCompleted}
	ErrReentrant            = &DomainError{Code: ErrCodeReentrant}
	ErrNotFound             = &DomainError{Code: ErrCodeNotFound}
)

// NewError constructs a DomainError with the supplied code and message.
func NewError(code ErrorCode, message string, cause error, context map[string]interface{}) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf extracts the ErrorCode from err, returning an empty code when err is
// not a DomainError.
func CodeOf(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsCode reports whether err carries the provided code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsConfigurationError reports whether err is one of the fatal,
// configuration-time failures that should abort startup.
func IsConfigurationError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeDuplicateStep, ErrCodeInvalidStep, ErrCodeRegistryFrozen,
		ErrCodePredicate, ErrCodeEmptyStepGraph, ErrCodeUnknownSchema, ErrCodeInvalidFlow:
		return true
	}
	return false
}

// GateBlockedError is returned when forward navigation is refused because the
// current step failed validation. It carries the result so callers can render
// field errors.
type GateBlockedError struct {
	StepID string
	Result ValidationResult
}

// Error implements the error interface.
func (e *GateBlockedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: step %q failed validation (%d field errors)", ErrCodeGateBlocked, e.StepID, len(e.Result.FieldErrors))
}

// Is lets errors.Is(err, ErrGateBlocked) match.
func (e *GateBlockedError) Is(target error) bool {
	var domainErr *DomainError
	if errors.As(target, &domainErr) {
		return domainErr.Code == ErrCodeGateBlocked
	}
	return false
}

// As exposes the error as a DomainError for CodeOf.
func (e *GateBlockedError) As(target interface{}) bool {
	if t, ok := target.(**DomainError); ok {
		*t = NewError(ErrCodeGateBlocked, "current step failed validation", nil, map[string]interface{}{
			"step_id": e.StepID,
		})
		return true
	}
	return false
}

// Helper constructors to simplify error creation throughout the domain.

func newDuplicateStepError(id string) *DomainError {
	return NewError(ErrCodeDuplicateStep, "duplicate step id", nil, map[string]interface{}{
		"step_id": id,
	})
}

func newInvalidStepError(message string, id string) *DomainError {
	return NewError(ErrCodeInvalidStep, message, nil, map[string]interface{}{
		"step_id": id,
	})
}

func newPredicateError(id string, cause error) *DomainError {
	return NewError(ErrCodePredicate, "visibility predicate failed", cause, map[string]interface{}{
		"step_id": id,
	})
}

func newInvalidPathError(path string, message string) *DomainError {
	return NewError(ErrCodeInvalidPath, message, nil, map[string]interface{}{
		"path": path,
	})
}
