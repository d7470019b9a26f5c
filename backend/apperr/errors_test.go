package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"gorm not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden wrapped", Wrap(ErrForbidden, "lesson requires pro"), http.StatusForbidden},
		{"bad request", Wrap(ErrBadRequest, "quiz has no questions"), http.StatusBadRequest},
		{"validation", ErrValidation, http.StatusUnprocessableEntity},
		{"conflict", ErrConflict, http.StatusConflict},
		{"duplicated key", gorm.ErrDuplicatedKey, http.StatusConflict},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, http.StatusConflict},
		{"pg other", &pgconn.PgError{Code: "23503"}, http.StatusInternalServerError},
		{"rate limited", ErrTooManyRequests, http.StatusTooManyRequests},
		{"payment required", ErrPaymentRequired, http.StatusPaymentRequired},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"fiber error", fiber.NewError(fiber.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestWrapKeepsMessage(t *testing.T) {
	err := Wrap(ErrConflict, "email already registered")
	assert.Equal(t, "email already registered", err.Error())
	assert.True(t, IsUniqueViolation(err))
	assert.Nil(t, Details(err))
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrForbidden, "lesson locked", map[string]string{"required_tier": "pro"})
	assert.Equal(t, http.StatusForbidden, Status(err))
	assert.Equal(t, map[string]string{"required_tier": "pro"}, Details(err))
}
