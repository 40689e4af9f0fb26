package core

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is matched (with errors.Is) by every upstream 401/403 response.
	ErrUnauthorized = errors.New("unauthorized")

	ErrSessionExpired = errors.New("Session expired. Please log in again.")
	ErrNotLoggedIn    = errors.New("not logged in")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ParseError reports malformed or unexpected HTML/payload shapes.
type ParseError struct {
	What string
	Err  error
}

func NewParseError(what string, err error) error {
	return &ParseError{What: what, Err: err}
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse " + e.What
	}
	return fmt.Sprintf("parse %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RangeError reports an argument outside of its accepted bounds.
type RangeError struct {
	Field    string
	Value    int
	Min, Max int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

// CheckRange returns a *RangeError if min <= value <= max does not hold.
func CheckRange(field string, value, min, max int) error {
	if value < min || value > max {
		return &RangeError{Field: field, Value: value, Min: min, Max: max}
	}
	return nil
}

// AuthError is a rejected login, carrying the server's message when one could be extracted.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// StatusError is a non-success upstream HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// NetworkError is a transport level failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// EmptyResponseError is a success status with no body.
type EmptyResponseError struct {
	What string
}

func (e *EmptyResponseError) Error() string {
	return "empty response: " + e.What
}

// IsUnauthorized reports whether err is (or wraps) an unauthorized upstream response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
