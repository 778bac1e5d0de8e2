package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeDatabase            = "DATABASE_ERROR"
	ErrCodeIngestion           = "INGESTION_ERROR"
	ErrCodeInsufficientHistory = "INSUFFICIENT_HISTORY"
	ErrCodeDelivery            = "DELIVERY_ERROR"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Common error constructors

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message, http.StatusForbidden)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

// RateLimited creates a rate limit error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, message, http.StatusInternalServerError)
}

// IngestionError creates an error for a failed cost ingestion batch. The
// failure is recorded on the subscription and never aborts other
// subscriptions' cycles.
func IngestionError(subscriptionID string, err error) *AppError {
	return Wrap(err, ErrCodeIngestion,
		fmt.Sprintf("Failed to ingest cost records for subscription %s", subscriptionID),
		http.StatusBadGateway)
}

// InsufficientHistory marks a series as too short for a detection method or
// forecast model. Callers skip the series instead of failing the run.
func InsufficientHistory(what string, have, need int) *AppError {
	return New(ErrCodeInsufficientHistory,
		fmt.Sprintf("%s has %d data points, need at least %d", what, have, need),
		http.StatusUnprocessableEntity)
}

// IsInsufficientHistory reports whether err is an insufficient-history error
func IsInsufficientHistory(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeInsufficientHistory
	}
	return false
}

// DeliveryError creates a webhook delivery error
func DeliveryError(endpoint string, err error) *AppError {
	return Wrap(err, ErrCodeDelivery,
		fmt.Sprintf("Failed to deliver notification to %s", endpoint),
		http.StatusBadGateway)
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeNotFound
	}
	return false
}

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeConflict
	}
	return false
}
