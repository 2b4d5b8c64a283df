package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies an EmbedError. Codes are stable strings so they can be
// matched in JSON output.
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Embedded terminal errors
	ErrCodeMissingDependency  ErrorCode = "MISSING_DEPENDENCY"
	ErrCodeSpawnFailed        ErrorCode = "SPAWN_FAILED"
	ErrCodeSessionUnavailable ErrorCode = "SESSION_UNAVAILABLE"
	ErrCodeGeometryDiscovery  ErrorCode = "GEOMETRY_DISCOVERY"
	ErrCodeProcessDied        ErrorCode = "PROCESS_DIED"
	ErrCodeDisplayUnavailable ErrorCode = "DISPLAY_UNAVAILABLE"

	ErrCodeCommandFailed ErrorCode = "COMMAND_FAILED"

	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// EmbedError is the error type every package returns across its boundary.
// Details carries machine-readable context (program, pid, names).
type EmbedError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *EmbedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EmbedError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *EmbedError) WithDetail(key string, value interface{}) *EmbedError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON renders the error for --verbose and --json output.
func (e *EmbedError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new EmbedError
func New(code ErrorCode, message string) *EmbedError {
	return &EmbedError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an EmbedError
func Wrap(err error, code ErrorCode, message string) *EmbedError {
	return &EmbedError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// As returns the first EmbedError in err's chain, or nil.
func As(err error) *EmbedError {
	var embedErr *EmbedError
	if stderrors.As(err, &embedErr) {
		return embedErr
	}
	return nil
}

// Is reports whether err's chain holds an EmbedError with code.
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode returns the code of the first EmbedError in err's chain, or "".
func GetCode(err error) ErrorCode {
	if embedErr := As(err); embedErr != nil {
		return embedErr.Code
	}
	return ""
}
