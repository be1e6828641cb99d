package errors

import (
	"fmt"
	"strings"
)

// ErrorType classifies an error for HTTP status mapping and log triage
type ErrorType string

const (
	// ErrTypeValidation represents malformed or incomplete inbound data (client fault)
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeAuth represents a missing or unusable credential
	ErrTypeAuth ErrorType = "authentication"
	// ErrTypeTokenRefresh represents a failed refresh-token grant
	ErrTypeTokenRefresh ErrorType = "token_refresh"
	// ErrTypeNotFound represents absence of data; callers decide whether it is fatal
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeConnection represents transport-level failures reaching a backend
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeTimeout represents an outbound call that exceeded its deadline
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeProvider represents a non-2xx response from an upstream provider
	ErrTypeProvider ErrorType = "provider"
	// ErrTypeRateLimit represents a request rejected by a rate ceiling
	ErrTypeRateLimit ErrorType = "rate_limit"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
)

// AppError is the structured error carried across component boundaries
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// AuthError creates a new authentication error
func AuthError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeAuth,
		Message: msg,
	}
}

// TokenRefreshError creates a new token refresh error. The provider's error
// payload, when available, is attached via WithContext by the caller.
func TokenRefreshError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeTokenRefresh,
		Message: msg,
		Cause:   cause,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
	}
}

// ProviderError creates a new provider API error
func ProviderError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeProvider,
		Message: msg,
	}
}

// RateLimitError creates a new rate limit error
func RateLimitError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", resource),
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}
