package apierr

import "fmt"

// Error carries an HTTP status and a stable machine-readable code alongside
// the underlying cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Stable codes used across the API surface.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeUnknownKey           = "unknown_key"
	CodeGenerationInProgress = "generation_in_progress"
	CodeGenerationFailed     = "generation_failed"
	CodePollTimeout          = "poll_timeout"
	CodeNotFound             = "not_found"
)
