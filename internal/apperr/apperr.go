package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindUpstream     Kind = "upstream_error"
	KindPersistence  Kind = "persistence_error"
)

// Error carries the taxonomy kind alongside the HTTP status it maps to.
type Error struct {
	Kind   Kind
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Public is the message safe to show to API callers. Wrapped causes of
// upstream and persistence failures are never exposed.
func (e *Error) Public() string {
	switch e.Kind {
	case KindPersistence:
		return "failed to save your request, please try again"
	case KindUpstream:
		return "the tutor is unavailable right now, please try again"
	}
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Kind)
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Msg: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Msg: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Msg: what + " not found"}
}

func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Status: http.StatusBadGateway, Msg: msg, Err: err}
}

func Persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Status: http.StatusInternalServerError, Msg: msg, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
