package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of configuration or infrastructure failure.
type ErrorCode string

const (
	ErrInvalidPattern   ErrorCode = "INVALID_PATTERN"
	ErrInvalidSelector  ErrorCode = "INVALID_SELECTOR"
	ErrInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	ErrRenderFailed     ErrorCode = "RENDER_FAILED"
)

// CoreError is a structured error with a code and the offending field.
type CoreError struct {
	Code    ErrorCode
	Message string
	Field   string
	Err     error
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoreError) Unwrap() error { return e.Err }

// New creates a CoreError without a cause.
func New(code ErrorCode, field, msg string) *CoreError {
	return &CoreError{Code: code, Field: field, Message: msg}
}

// Wrap creates a CoreError around cause.
func Wrap(code ErrorCode, field, msg string, cause error) *CoreError {
	return &CoreError{Code: code, Field: field, Message: msg, Err: cause}
}

// NewInvalidPattern reports a regular expression that failed to compile.
func NewInvalidPattern(field, pattern string, cause error) *CoreError {
	return Wrap(ErrInvalidPattern, field, fmt.Sprintf("invalid pattern %q", pattern), cause)
}

// NewInvalidSelector reports a CSS selector that failed to compile.
func NewInvalidSelector(field, selector string, cause error) *CoreError {
	return Wrap(ErrInvalidSelector, field, fmt.Sprintf("invalid selector %q", selector), cause)
}

// NewInvalidConfig reports an out-of-range or inconsistent setting.
func NewInvalidConfig(field, msg string) *CoreError {
	return New(ErrInvalidConfig, field, msg)
}

// Is reports whether any error in err's chain is a CoreError with code.
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode returns the code of the first CoreError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var ce *CoreError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
