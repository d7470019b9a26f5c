package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/aimastery/academy/backend/utils"
)

// RateLimitKey picks what requests are counted by.
type RateLimitKey int

const (
	ByIP RateLimitKey = iota
	// ByUser falls back to the IP when no user is authenticated.
	ByUser
)

// RateLimiter allows max requests per window. storage may be nil for the
// in-process store.
func RateLimiter(prefix string, max int, window time.Duration, key RateLimitKey, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			if key == ByUser {
				if user := CurrentUser(c); user != nil {
					return prefix + ":user:" + strconv.FormatUint(uint64(user.ID), 10)
				}
			}
			return prefix + ":ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Error(c, fiber.StatusTooManyRequests,
				fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, slow down"))
		},
	})
}
