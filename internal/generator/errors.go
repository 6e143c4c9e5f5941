package generator

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds. Match them with errors.Is against a returned *Error.
var (
	ErrTimeout           = errors.New("request timed out")
	ErrTransport         = errors.New("transport failure")
	ErrServer            = errors.New("server error")
	ErrMalformedResponse = errors.New("malformed response")
	// ErrCanceled is returned when the caller's context was canceled before
	// the service answered.
	ErrCanceled = errors.New("request canceled")
)

// Error is the failure returned by Client.Generate. Its Error text is meant
// to be shown to the user as is.
type Error struct {
	Kind   error
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrTimeout:
		return "Request timeout. Please try again."
	case ErrServer:
		return e.Detail
	case ErrMalformedResponse:
		return fmt.Sprintf("failed to decode generation response: %v", e.Err)
	case ErrCanceled:
		return "request canceled"
	default:
		return fmt.Sprintf("failed to reach generation service: %v", e.Err)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func serverError(status int, detail string) *Error {
	if detail == "" {
		detail = fmt.Sprintf("request failed: HTTP %d %s", status, http.StatusText(status))
	}
	return &Error{Kind: ErrServer, Status: status, Detail: detail}
}
