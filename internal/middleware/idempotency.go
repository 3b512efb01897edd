package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// IdempotencyKey parses the X-Idempotency-Key header and stores it in context
// for the intake path. An empty key means the request is not retry-safe and
// is admitted as a fresh submission.
func IdempotencyKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-Idempotency-Key", "")
		if key != "" {
			c.Locals("idempotencyKey", key)
		}
		return c.Next()
	}
}
