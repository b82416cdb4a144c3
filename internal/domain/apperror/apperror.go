package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an error with one of the lifecycle failure categories
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidTransition
	KindUnauthorized
	KindValidation
	KindPersistence
)

// Codes surfaced to API callers
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeValidation        = "INVALID_INPUT"
	CodeInternal          = "INTERNAL_ERROR"
)

var kindNames = map[Kind]string{
	KindNotFound:          "not_found",
	KindInvalidTransition: "invalid_transition",
	KindUnauthorized:      "unauthorized",
	KindValidation:        "validation",
	KindPersistence:       "persistence",
}

var kindStatus = map[Kind]int{
	KindNotFound:          http.StatusNotFound,
	KindInvalidTransition: http.StatusConflict,
	KindUnauthorized:      http.StatusForbidden,
	KindValidation:        http.StatusBadRequest,
	KindPersistence:       http.StatusInternalServerError,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is the tagged error returned across the service boundary
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	HTTPStatus int
	Err        error
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

// New creates an error of the given kind with a caller-facing code and message
func New(kind Kind, code, message string) *Error {
	return &Error{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: kindStatus[kind],
	}
}

// Wrap creates an error of the given kind that keeps err as its cause
func Wrap(kind Kind, code, message string, err error) *Error {
	e := New(kind, code, message)
	e.Err = err
	return e
}

func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

func InvalidTransition(code, message string) *Error {
	return New(KindInvalidTransition, code, message)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, CodeUnauthorized, message)
}

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

// Persistence hides the store failure behind an opaque message; the cause is
// kept for logs.
func Persistence(err error) *Error {
	return Wrap(KindPersistence, CodeInternal, "internal error", err)
}

// As returns the tagged error in err's chain, if any
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, treating untagged errors as persistence failures
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindPersistence
}

// Is reports whether err is tagged with kind
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
