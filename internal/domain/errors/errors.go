package errors

import (
	"errors"
	"fmt"
)

// Error types surfaced by the auditor
type ErrorType string

const (
	ErrorTypeValidation           ErrorType = "validation"
	ErrorTypeInsufficientData     ErrorType = "insufficient_data"
	ErrorTypeDegenerateClustering ErrorType = "degenerate_clustering"
	ErrorTypeConfiguration        ErrorType = "configuration"
	ErrorTypeInternal             ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	// Fatal errors abort a run; everything else is recovered locally.
	Fatal bool `json:"fatal"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors

// NewValidationError reports a malformed input record. The record is skipped
// and counted; the batch continues.
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewInsufficientDataError reports a population too small for the ML stages.
func NewInsufficientDataError(count, minimum int) *AppError {
	return &AppError{
		Type:    ErrorTypeInsufficientData,
		Code:    "INSUFFICIENT_DATA",
		Message: fmt.Sprintf("%d deviations is below the analysis threshold of %d", count, minimum),
		Details: map[string]interface{}{"count": count, "minimum": minimum},
	}
}

func NewDegenerateClusteringError(clusters, minClusters, maxClusters int) *AppError {
	return &AppError{
		Type: ErrorTypeDegenerateClustering,
		Code: "DEGENERATE_CLUSTERING",
		Message: fmt.Sprintf("density clustering produced %d clusters, outside [%d, %d]",
			clusters, minClusters, maxClusters),
		Details: map[string]interface{}{
			"clusters":     clusters,
			"min_clusters": minClusters,
			"max_clusters": maxClusters,
		},
	}
}

// NewConfigurationError rejects a configuration before any stage runs.
func NewConfigurationError(field, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConfiguration,
		Code:    "INVALID_CONFIGURATION",
		Message: fmt.Sprintf("%s: %s", field, message),
		Details: map[string]interface{}{"field": field},
		Fatal:   true,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
		Fatal:   true,
	}
}

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsFatal reports whether err should abort the run.
func IsFatal(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fatal
	}
	return err != nil
}

// Code extracts the error code, or INTERNAL_ERROR for foreign errors.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}
