package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeEmptyDataset    ErrorType = "empty_dataset"
	ErrorTypeMissingResource ErrorType = "missing_resource"
	ErrorTypeRetrieval       ErrorType = "retrieval_failed"
	ErrorTypeGeneration      ErrorType = "generation_failed"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeUnavailable     ErrorType = "unavailable"
	ErrorTypeInternal        ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. Two domain errors match when their types match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Sentinel errors. Use errors.Is against these to test the category; build
// request-specific errors with NewDomainError or the Wrap helpers.
var (
	// InvalidArgument
	ErrInvalidArgument  = NewDomainError(ErrorTypeValidation, "invalid argument", nil)
	ErrInvalidTopN      = NewDomainError(ErrorTypeValidation, "top_n must be a positive integer", nil)
	ErrMissingQuery     = NewDomainError(ErrorTypeValidation, "at least one of 'ingredients' or 'preferences' must be provided", nil)
	ErrEmptyIngredients = NewDomainError(ErrorTypeValidation, "ingredients must be a non-empty string", nil)
	ErrInvalidMaxTokens = NewDomainError(ErrorTypeValidation, "max_new_tokens must be a positive integer", nil)

	// Startup resources
	ErrEmptyDataset    = NewDomainError(ErrorTypeEmptyDataset, "dataset contains no records", nil)
	ErrMissingResource = NewDomainError(ErrorTypeMissingResource, "dataset resource missing or misaligned", nil)

	// Core failures
	ErrRetrievalFailed   = NewDomainError(ErrorTypeRetrieval, "similarity search failed", nil)
	ErrDimensionMismatch = NewDomainError(ErrorTypeRetrieval, "query embedding dimension mismatch", nil)
	ErrGenerationFailed  = NewDomainError(ErrorTypeGeneration, "recipe generation failed", nil)

	// Capacity
	ErrRateLimitExceeded   = NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil)
	ErrProviderUnavailable = NewDomainError(ErrorTypeUnavailable, "model provider unavailable", nil)

	ErrInternal = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// Error type checking helper functions

// IsValidationError checks if an error is a validation (InvalidArgument) error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsEmptyDatasetError checks if an error reports an empty dataset
func IsEmptyDatasetError(err error) bool {
	return hasType(err, ErrorTypeEmptyDataset)
}

// IsMissingResourceError checks if an error reports absent or misaligned startup data
func IsMissingResourceError(err error) bool {
	return hasType(err, ErrorTypeMissingResource)
}

// IsRetrievalError checks if an error is a retrieval failure
func IsRetrievalError(err error) bool {
	return hasType(err, ErrorTypeRetrieval)
}

// IsGenerationError checks if an error is a generation failure
func IsGenerationError(err error) bool {
	return hasType(err, ErrorTypeGeneration)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return hasType(err, ErrorTypeRateLimit)
}

// IsUnavailableError checks if an error reports an unavailable dependency
func IsUnavailableError(err error) bool {
	return hasType(err, ErrorTypeUnavailable)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapRetrieval wraps an error as a retrieval failure
func WrapRetrieval(message string, err error) error {
	return NewDomainError(ErrorTypeRetrieval, message, err)
}

// WrapGeneration wraps an error as a generation failure
func WrapGeneration(message string, err error) error {
	return NewDomainError(ErrorTypeGeneration, message, err)
}

// InvalidArgument builds a validation error carrying per-field messages
func InvalidArgument(message string, fields map[string]string) *DomainError {
	e := NewDomainError(ErrorTypeValidation, message, nil)
	for k, v := range fields {
		e.WithDetail(k, v)
	}
	return e
}
