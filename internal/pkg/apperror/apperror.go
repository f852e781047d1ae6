package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error independent of its message.
type Kind string

const (
	KindConflict          Kind = "conflict"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindUnauthorized      Kind = "unauthorized"
	KindValidation        Kind = "validation"
	KindMalformedPayload  Kind = "malformed_payload"
	KindVerification      Kind = "verification"
	KindFetch             Kind = "fetch"
	KindDanglingReference Kind = "dangling_reference"
)

// Error is a structured application error with an HTTP status code.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrConflict          = &Error{Kind: KindConflict, Code: http.StatusConflict, Message: "conflict"}
	ErrNotFound          = &Error{Kind: KindNotFound, Code: http.StatusNotFound, Message: "not found"}
	ErrForbidden         = &Error{Kind: KindForbidden, Code: http.StatusForbidden, Message: "forbidden"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Code: http.StatusUnauthorized, Message: "unauthorized"}
	ErrValidation        = &Error{Kind: KindValidation, Code: http.StatusUnprocessableEntity, Message: "validation failed"}
	ErrMalformedPayload  = &Error{Kind: KindMalformedPayload, Code: http.StatusBadRequest, Message: "malformed payload"}
	ErrVerification      = &Error{Kind: KindVerification, Code: http.StatusUnauthorized, Message: "verification failed"}
	ErrFetch             = &Error{Kind: KindFetch, Code: http.StatusBadGateway, Message: "fetch failed"}
	ErrDanglingReference = &Error{Kind: KindDanglingReference, Code: http.StatusInternalServerError, Message: "dangling reference"}
)

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Code: http.StatusConflict, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: http.StatusNotFound, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Code: http.StatusForbidden, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: http.StatusUnauthorized, Message: msg}
}

func Validation(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Code: http.StatusUnprocessableEntity, Message: msg, Err: err}
}

func MalformedPayload(msg string) *Error {
	return &Error{Kind: KindMalformedPayload, Code: http.StatusBadRequest, Message: msg}
}

func Verification(msg string, err error) *Error {
	return &Error{Kind: KindVerification, Code: http.StatusUnauthorized, Message: msg, Err: err}
}

func Fetch(msg string, err error) *Error {
	return &Error{Kind: KindFetch, Code: http.StatusBadGateway, Message: msg, Err: err}
}

func DanglingReference(msg string) *Error {
	return &Error{Kind: KindDanglingReference, Code: http.StatusInternalServerError, Message: msg}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus maps err to a status code, 500 for anything unclassified.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// KindOf returns the kind of err or "" when it is not an *Error.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}
