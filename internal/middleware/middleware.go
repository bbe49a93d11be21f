package middleware

import (
	"runtime/debug"

	"nabook/pkg/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// RequestID assigns an X-Request-ID to requests that arrive without one and
// echoes it on the response.
func RequestID() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
			c.Request().Header.Set("X-Request-ID", id)
		}
		c.Set("X-Request-ID", id)
		return c.Next()
	}
}

// PanicRecovery turns handler panics into logged 500 responses.
func PanicRecovery() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.WithFields(map[string]interface{}{
					"panic":  r,
					"method": c.Method(),
					"path":   c.Path(),
					"ip":     c.IP(),
					"stack":  string(stack),
				}).Errorf("panic recovered")

				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":      "error interno del servidor",
					"error_code": "NB-9000",
				})
			}
		}()
		return c.Next()
	}
}
