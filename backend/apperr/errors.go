// Package apperr holds the sentinel errors shared by controllers and services
// and maps them to HTTP status codes.
package apperr

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("requested resource not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("resource conflict")
	ErrTooManyRequests = errors.New("too many requests")
	ErrPaymentRequired = errors.New("upgrade required")
	ErrUnavailable     = errors.New("service unavailable")
)

// Error carries a caller-facing message on top of a sentinel.
type Error struct {
	Err     error
	Message string
	Details interface{}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap annotates a sentinel with a caller-facing message, keeping errors.Is working.
func Wrap(sentinel error, message string) error {
	return &Error{Err: sentinel, Message: message}
}

// WithDetails is Wrap plus a structured payload rendered under "details".
func WithDetails(sentinel error, message string, details interface{}) error {
	return &Error{Err: sentinel, Message: message, Details: details}
}

// Details returns the structured payload attached by WithDetails, if any.
func Details(err error) interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict), errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	return Status(err) == http.StatusConflict
}
