// Package errors provides structured error types and response helpers for the API.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/papeesearch/portal/internal/auth"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// Error codes for structured API responses.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeConflict        = "CONFLICT"
)

// APIError represents a structured API error response.
type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails returns a copy of the error with additional details.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	c := *e
	c.Details = details
	return &c
}

// WithRequestID returns a copy of the error with the request ID set.
func (e *APIError) WithRequestID(requestID string) *APIError {
	c := *e
	c.RequestID = requestID
	return &c
}

// New creates a new APIError with the given code and message.
func New(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *APIError {
	return New(CodeValidationError, message)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *APIError {
	return New(CodeNotFound, message)
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *APIError {
	return New(CodeUnauthorized, message)
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *APIError {
	return New(CodeForbidden, message)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *APIError {
	return New(CodeInternalError, message)
}

// NewConflictError creates a conflict error.
func NewConflictError(message string) *APIError {
	return New(CodeConflict, message)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *APIError) HTTPStatusCode() int {
	switch e.Code {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FromError translates a domain error into the API error a client should see.
// The boolean is false when err is not a known domain error; the caller then
// owns logging it and the result is a generic internal error.
func FromError(err error) (*APIError, bool) {
	var (
		required *models.RequiredError
		invalid  *models.InvalidError
		apiErr   *APIError
	)
	switch {
	case err == nil:
		return nil, true
	case stderrors.As(err, &apiErr):
		return apiErr, true
	case stderrors.As(err, &required):
		return AddFieldError(required.Field, required.Error()).ToAPIError(), true
	case stderrors.As(err, &invalid):
		return AddFieldError(invalid.Field, invalid.Error()).ToAPIError(), true
	case stderrors.Is(err, store.ErrNotFound), stderrors.Is(err, auth.ErrUserNotFound):
		return NewNotFoundError("Resource not found"), true
	case stderrors.Is(err, auth.ErrEmailTaken):
		return NewConflictError("Email is already in use"), true
	case stderrors.Is(err, store.ErrDuplicate):
		return NewConflictError("Resource already exists"), true
	case stderrors.Is(err, auth.ErrAlreadySetUp):
		return NewConflictError("Setup has already been completed"), true
	case stderrors.Is(err, auth.ErrWeakPassword):
		return AddFieldError("password", err.Error()).ToAPIError(), true
	case stderrors.Is(err, auth.ErrUnknownPermission):
		return AddFieldError("permissions", err.Error()).ToAPIError(), true
	case stderrors.Is(err, auth.ErrInvalidCredentials):
		return NewUnauthorizedError("Invalid email or password"), true
	case stderrors.Is(err, auth.ErrExpiredToken):
		return NewUnauthorizedError("Token has expired"), true
	case stderrors.Is(err, auth.ErrInvalidToken), stderrors.Is(err, auth.ErrInvalidSignature),
		stderrors.Is(err, auth.ErrMissingClaims):
		return NewUnauthorizedError("Invalid token"), true
	case stderrors.Is(err, auth.ErrAccountDisabled):
		return NewForbiddenError("Account is disabled"), true
	case stderrors.Is(err, auth.ErrPermissionDenied):
		return NewForbiddenError("Permission denied"), true
	case stderrors.Is(err, auth.ErrCannotRemoveAdmin):
		return NewForbiddenError("Admin accounts cannot be removed"), true
	case stderrors.Is(err, auth.ErrNotSubadmin):
		return NewValidationError("User is not a subadmin"), true
	}
	return NewInternalError("An unexpected error occurred"), false
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an APIError as a JSON response, stamping the chi request ID.
func WriteError(w http.ResponseWriter, r *http.Request, err *APIError) {
	if err.RequestID == "" && r != nil {
		err = err.WithRequestID(middleware.GetReqID(r.Context()))
	}
	WriteJSON(w, err.HTTPStatusCode(), err)
}

// GetStackTrace returns the current stack trace as a string.
func GetStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ValidationError represents a field-level validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of field-level validation errors.
type ValidationErrors []ValidationError

// Add adds a new validation error for a field.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any validation errors.
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// ToAPIError converts validation errors to an APIError with field details.
func (v ValidationErrors) ToAPIError() *APIError {
	if len(v) == 0 {
		return NewValidationError("validation failed")
	}

	mainMessage := v[0].Message
	if len(v) > 1 {
		mainMessage = fmt.Sprintf("%s (and %d more errors)", mainMessage, len(v)-1)
	}

	return &APIError{
		Code:    CodeValidationError,
		Message: mainMessage,
		Details: map[string]any{
			"fields": v,
		},
	}
}

// AddFieldError is a helper to create a validation error for a single field.
func AddFieldError(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

// ErrorLogEntry represents a structured error log entry.
type ErrorLogEntry struct {
	CorrelationID string `json:"correlation_id"`
	ErrorCode     string `json:"error_code"`
	Message       string `json:"message"`
	StackTrace    string `json:"stack_trace"`
}

// NewErrorLogEntry creates a new error log entry with all required fields.
func NewErrorLogEntry(correlationID, errorCode, message string) *ErrorLogEntry {
	return &ErrorLogEntry{
		CorrelationID: correlationID,
		ErrorCode:     errorCode,
		Message:       message,
		StackTrace:    GetStackTrace(),
	}
}

// ToSlogAttrs returns the error log entry as slog attributes for structured logging.
func (e *ErrorLogEntry) ToSlogAttrs() []any {
	return []any{
		"correlation_id", e.CorrelationID,
		"error_code", e.ErrorCode,
		"message", e.Message,
		"stack_trace", e.StackTrace,
	}
}
