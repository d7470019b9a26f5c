package middleware

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/utils"
)

// LoggingMiddleware writes one line per request and reports server errors.
func LoggingMiddleware(logger *log.Logger, reporter logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			// let the app ErrorHandler write the response before we read the status
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		requestID, _ := c.Locals("requestid").(string)
		logger.Printf(
			"[%s] %s %s %s %d %v",
			requestID,
			c.IP(),
			c.Method(),
			c.Path(),
			status,
			time.Since(start),
		)

		if status >= fiber.StatusInternalServerError && reporter != nil {
			fields := map[string]string{
				"request_id": requestID,
				"method":     c.Method(),
				"path":       c.Path(),
				"status":     strconv.Itoa(status),
			}
			args := []interface{}{fields}
			if internal, ok := c.Locals(utils.LocalInternalError).(error); ok {
				args = append(args, internal)
			} else if err != nil {
				args = append(args, err)
			}
			if user := CurrentUser(c); user != nil {
				args = append(args, logging.Person{
					ID:       strconv.FormatUint(uint64(user.ID), 10),
					Username: user.Username,
					Email:    user.Email,
				})
			}
			reporter.Error("request failed", args...)
		}
		return nil
	}
}
