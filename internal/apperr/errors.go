// Package apperr classifies portal errors so handlers can map them to HTTP responses.
package apperr

import (
	stderrors "errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("permission denied")
	ErrUnauthorized = errors.New("user not authenticated")
)

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError blocks a write before it reaches the store.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

// NewValidationError builds a ValidationError with a user-facing message.
func NewValidationError(msg string, flds ...FieldError) error {
	return &ValidationError{Err: errors.New(msg), Fields: flds}
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Conflict wraps ErrConflict with a message shown to the user as is.
func Conflict(msg string) error {
	return &coded{msg: msg, kind: ErrConflict}
}

// NotFound wraps ErrNotFound with a message shown to the user as is.
func NotFound(msg string) error {
	return &coded{msg: msg, kind: ErrNotFound}
}

type coded struct {
	msg  string
	kind error
}

func (c *coded) Error() string { return c.msg }

func (c *coded) Is(target error) bool { return target == c.kind }

// IsUniqueViolation reports whether err comes from a Postgres unique constraint.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	var verr *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.As(err, &verr):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	var pgErr *pgconn.PgError
	if stderrors.As(errors.Cause(err), &pgErr) {
		switch pgErr.Code {
		case "23505":
			return http.StatusConflict
		case "23503", "23514", "22P02":
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}
