// Package apperr defines the service error taxonomy and its HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindStore Kind = iota
	KindValidation
	KindDuplicate
	KindNotFound
	KindRegistrationNotFound
	KindUnauthorized
	KindForbidden
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation marks user-correctable input problems.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Duplicate marks unique-constraint violations, e.g. an ICAO code already on
// file.
func Duplicate(format string, args ...any) *Error {
	return &Error{Kind: KindDuplicate, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundOrForbidden deliberately collapses "does not exist" and "not yours"
// so callers cannot probe for other users' resources.
func NotFoundOrForbidden(resource string) *Error {
	return &Error{Kind: KindNotFound, Msg: resource + " not found"}
}

// RegistrationNotFound signals that a registration lookup failed and the
// caller supplied no details to create one.
func RegistrationNotFound(registration string) *Error {
	return &Error{Kind: KindRegistrationNotFound, Msg: fmt.Sprintf("no aircraft on file with registration %q", registration)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

// Store wraps any unclassified store failure; it surfaces as an opaque server
// error.
func Store(msg string, err error) *Error {
	return &Error{Kind: KindStore, Msg: msg, Err: err}
}

// HTTPStatus maps an error to a response code per the API contract.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicate:
		return http.StatusConflict
	case KindNotFound, KindRegistrationNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
