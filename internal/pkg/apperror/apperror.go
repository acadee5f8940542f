package apperror

import (
	"errors"
	"maps"
)

// AppError is a custom error type that includes an HTTP status code, a machine-readable
// type and optional structured details rendered next to the message.
type AppError struct {
	Code    int            // HTTP Status Code (e.g., 400, 404)
	Type    string         // Machine-readable error code (e.g., "CONFLICT")
	Message string         // User-facing error message
	Details map[string]any // Extra fields merged into the error body
	Err     error          // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with a status code, type and message.
func New(code int, typ, message string) *AppError {
	return &AppError{
		Code:    code,
		Type:    typ,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, typ, message string) *AppError {
	return &AppError{
		Code:    code,
		Type:    typ,
		Message: message,
		Err:     err,
	}
}

// WithDetails returns a copy of e carrying the given details.
// The copy unwraps to e, so errors.Is against the sentinel still matches.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	maps.Copy(merged, e.Details)
	maps.Copy(merged, details)
	return &AppError{
		Code:    e.Code,
		Type:    e.Type,
		Message: e.Message,
		Details: merged,
		Err:     e,
	}
}

// WithMessage returns a copy of e with a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Type:    e.Type,
		Message: message,
		Details: e.Details,
		Err:     e,
	}
}

// WithCause returns a copy of e that also wraps cause. errors.Is matches both
// the sentinel and the cause; the cause is never shown to the user.
func (e *AppError) WithCause(cause error) *AppError {
	return &AppError{
		Code:    e.Code,
		Type:    e.Type,
		Message: e.Message,
		Details: e.Details,
		Err:     errors.Join(e, cause),
	}
}
