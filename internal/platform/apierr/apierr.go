package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

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

func NotFound(what string) *Error {
	return New(http.StatusNotFound, "not_found", fmt.Errorf("%s not found", what))
}

func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, "bad_request", fmt.Errorf(format, args...))
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, "unauthorized", fmt.Errorf(format, args...))
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, "forbidden", fmt.Errorf(format, args...))
}

func Unprocessable(format string, args ...any) *Error {
	return New(http.StatusUnprocessableEntity, "validation_failed", fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, "conflict", fmt.Errorf(format, args...))
}

func TooManyRequests(format string, args ...any) *Error {
	return New(http.StatusTooManyRequests, "rate_limited", fmt.Errorf(format, args...))
}

func Upstream(err error) *Error {
	return New(http.StatusBadGateway, "upstream_failed", err)
}

// StatusOf returns the HTTP status carried by err, or 500 when err carries none.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether err carries the given status.
func Is(err error, status int) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == status
}
