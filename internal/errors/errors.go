package errors

import "fmt"

// ErrorCode represents a docuverse error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrDecodeFailed   ErrorCode = "DECODE_FAILED"   // 422
	ErrRequestFailed  ErrorCode = "REQUEST_FAILED"  // 502
	ErrMisuse         ErrorCode = "MISUSE"          // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// Error represents a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for caller mistakes (bad flags, missing credentials).
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing tree node, object or build.
func NewNotFound(identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing file on disk.
func NewFileNotFound(path string) *Error {
	return &Error{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewDecodeFailed creates a 422 error for malformed JSON from the AI or the feed API.
func NewDecodeFailed(what string, err error) *Error {
	msg := fmt.Sprintf("failed to decode %s", what)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{
		Code:    ErrDecodeFailed,
		Status:  422,
		Message: msg,
		Details: map[string]any{"what": what},
		Cause:   err,
	}
}

// NewRequestFailed creates a 502 error for a failed external call
// (bad URL, non-2xx status, empty completion).
func NewRequestFailed(msg string, details map[string]any) *Error {
	return &Error{
		Code:    ErrRequestFailed,
		Status:  502,
		Message: msg,
		Details: details,
	}
}

// NewMisuse creates an error for a violated tree contract, such as materializing
// a root that cannot produce children.
func NewMisuse(msg string) *Error {
	return &Error{
		Code:    ErrMisuse,
		Status:  500,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if an error is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	if dErr, ok := err.(*Error); ok {
		return dErr.Code == code
	}
	return false
}
