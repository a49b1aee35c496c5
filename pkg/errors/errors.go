// Package errors provides structured error types for hack.
package errors

import "fmt"

// ErrorCode identifies specific error conditions
type ErrorCode string

const (
	// ErrCodeConnect covers fetch/WebSocket failures, non-2xx HTTP
	// statuses, and readiness-probe failures. This is the only class
	// that is fatal to a log session.
	ErrCodeConnect ErrorCode = "CONNECT_ERROR"

	// ErrCodeParse covers unparsable response bodies on otherwise
	// successful requests. Line-level parse failures are never errors;
	// they degrade to raw text locally.
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeTimeout    ErrorCode = "TIMEOUT"
	ErrCodeSubprocess ErrorCode = "SUBPROCESS_ERROR"
)

// Error is the base error type for hack
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Wrap creates a new error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Details: make(map[string]interface{}),
	}
}

// WithDetail adds a single detail to an error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// NotFoundError creates a not found error
func NotFoundError(resourceType, name string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found", resourceType, name),
		Details: map[string]interface{}{
			"resource_type": resourceType,
			"name":          name,
		},
	}
}

// SubprocessError creates an error for a subprocess that failed to
// spawn or wait.
func SubprocessError(command string, err error) *Error {
	return &Error{
		Code:    ErrCodeSubprocess,
		Message: fmt.Sprintf("%s failed", command),
		Cause:   err,
		Details: map[string]interface{}{
			"command": command,
		},
	}
}

// Is checks if the error matches the given code
func Is(err error, code ErrorCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}
