package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Recover converts handler panics into 500 responses instead of dropping
// the connection.
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("path", c.Path()),
					slog.String("method", c.Method()),
				)

				_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": fiber.Map{
						"code":    "INTERNAL",
						"message": "An unexpected error occurred",
					},
				})
			}
		}()
		return c.Next()
	}
}
