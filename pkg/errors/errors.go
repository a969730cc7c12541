// Package errors provides structured error handling for the application
// Following enterprise patterns for error management and observability
package errors

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents an error code
type ErrorCode string

// Common error codes following RESTful API conventions
const (
	// Client errors (4xx)
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeDatabaseError      ErrorCode = "DATABASE_ERROR"

	// Upstream language-model errors
	CodeNetworkFailure    ErrorCode = "NETWORK_FAILURE"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeUnparseableOutput ErrorCode = "UNPARSEABLE_OUTPUT"
	CodeSchemaMismatch    ErrorCode = "SCHEMA_MISMATCH"
	CodeCompletionFailed  ErrorCode = "COMPLETION_FAILED"

	// Business logic errors
	CodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	CodeMessageNotFound      ErrorCode = "MESSAGE_NOT_FOUND"
)

// AppError represents an application error with structured information
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound, CodeConversationNotFound, CodeMessageNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests, CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodeNetworkFailure, CodeCompletionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// Predefined error constructors for common scenarios

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *AppError {
	return NewAppError(
		CodeDatabaseError,
		"Database operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewNetworkFailureError creates an upstream transport error after the retry
// budget is exhausted
func NewNetworkFailureError(endpoint string, cause error) *AppError {
	return NewAppError(
		CodeNetworkFailure,
		"Language model request failed",
		fmt.Sprintf("All attempts against %s failed", endpoint),
	).WithCause(cause).WithMetadata("endpoint", endpoint)
}

// NewRateLimitedError creates a rate-limited error for an exhausted 429 budget
func NewRateLimitedError(endpoint string) *AppError {
	return NewAppError(
		CodeRateLimited,
		"Language model rate limited",
		"Upstream kept returning HTTP 429 after all retries",
	).WithMetadata("endpoint", endpoint)
}

// NewUnparseableOutputError creates an error for a model response that
// contained no JSON at all
func NewUnparseableOutputError(raw string) *AppError {
	return NewAppError(
		CodeUnparseableOutput,
		"No structured data in model response",
		"",
	).WithMetadata("raw_response", raw)
}

// NewSchemaMismatchError creates an error for JSON that parsed but is missing
// required keys or violates a structural invariant
func NewSchemaMismatchError(details string) *AppError {
	return NewAppError(
		CodeSchemaMismatch,
		"Model response does not match expected shape",
		details,
	)
}

// NewCompletionFailedError creates the single fatal error class: the final
// conversational completion could not be produced
func NewCompletionFailedError(cause error) *AppError {
	return NewAppError(
		CodeCompletionFailed,
		"Chat completion failed",
		"The conversational reply could not be generated",
	).WithCause(cause)
}

// NewConversationNotFoundError creates a conversation not found error
func NewConversationNotFoundError(conversationID string) *AppError {
	return NewAppError(
		CodeConversationNotFound,
		"Conversation not found",
		fmt.Sprintf("Conversation with ID %s does not exist or access is denied", conversationID),
	).WithMetadata("conversation_id", conversationID)
}

// NewMessageNotFoundError creates a message not found error
func NewMessageNotFoundError(messageID string) *AppError {
	return NewAppError(
		CodeMessageNotFound,
		"Message not found",
		fmt.Sprintf("Message with ID %s does not exist", messageID),
	).WithMetadata("message_id", messageID)
}

// Utility functions

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeInternal
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:      err.Code,
			Message:   err.Message,
			Details:   err.Details,
			Metadata:  err.Metadata,
			RequestID: requestID,
			Timestamp: fmt.Sprintf("%d", time.Now().Unix()),
		},
	}
}
