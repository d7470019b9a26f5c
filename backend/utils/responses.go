package utils

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aimastery/academy/backend/apperr"
)

// SuccessResponse is the envelope of every successful JSON response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse is the envelope of every failed JSON response.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// PaginationMeta is sent as Meta with paginated lists.
type PaginationMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func Success(c *fiber.Ctx, status int, data interface{}, meta ...interface{}) error {
	response := SuccessResponse{
		Success: true,
		Data:    data,
	}
	if len(meta) > 0 {
		response.Meta = meta[0]
	}
	return c.Status(status).JSON(response)
}

func OK(c *fiber.Ctx, data interface{}, meta ...interface{}) error {
	return Success(c, fiber.StatusOK, data, meta...)
}

func Created(c *fiber.Ctx, data interface{}) error {
	return Success(c, fiber.StatusCreated, data)
}

func Message(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(SuccessResponse{Success: true, Message: message})
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func Paginate(c *fiber.Ctx, data interface{}, total int64, page, pageSize int) error {
	return OK(c, data, PaginationMeta{Total: total, Page: page, PageSize: pageSize})
}

func Error(c *fiber.Ctx, status int, err error, details ...interface{}) error {
	response := ErrorResponse{
		Success: false,
		Error:   http.StatusText(status),
		Message: err.Error(),
	}
	if len(details) > 0 {
		response.Details = details[0]
	}
	return c.Status(status).JSON(response)
}

// Fail renders err with the status apperr maps it to. Internal errors are
// rendered with a generic message so database details never leak.
func Fail(c *fiber.Ctx, err error) error {
	status := apperr.Status(err)
	if status >= fiber.StatusInternalServerError {
		c.Locals(LocalInternalError, err)
		return Error(c, status, fiber.NewError(status, "Something went wrong"))
	}
	if details := apperr.Details(err); details != nil {
		return Error(c, status, err, details)
	}
	return Error(c, status, err)
}

func ValidationError(c *fiber.Ctx, errors map[string]string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
		Success: false,
		Error:   "Validation Error",
		Details: errors,
	})
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, fiber.NewError(fiber.StatusNotFound, message))
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, fiber.NewError(fiber.StatusBadRequest, message))
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, fiber.NewError(fiber.StatusUnauthorized, message))
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, fiber.NewError(fiber.StatusForbidden, message))
}

// LocalInternalError is the fiber.Ctx local under which Fail stores the error
// behind a 500 so the request logger can report it.
const LocalInternalError = "internal_error"
