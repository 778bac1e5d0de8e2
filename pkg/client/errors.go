package client

import "fmt"

// APIError represents an error returned by the API
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("API error: %s (status: %d)", e.Message, e.StatusCode)
}

// IsNotFound returns true for 404 responses
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsUnauthorized returns true for 401 responses
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsConflict returns true for 409 responses
func (e *APIError) IsConflict() bool {
	return e.StatusCode == 409
}

// IsValidationError returns true for 400 responses
func (e *APIError) IsValidationError() bool {
	return e.StatusCode == 400
}

// IsServerError returns true for 5xx responses
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}
