package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// APIToken guards the HTTP surface with a single static token, passed either
// as "Authorization: Bearer <token>" or as an X-API-Key header. An empty
// configured token disables the check (local PoC runs).
func APIToken(token string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}

		presented := c.Get("X-API-Key")
		if presented == "" {
			presented = c.Get("Authorization")
			if len(presented) > 7 && presented[:7] == "Bearer " {
				presented = presented[7:]
			}
		}

		if presented == "" {
			logger.Warn("Missing API token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API token required",
			})
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			logger.Warn("Invalid API token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API token",
			})
		}

		return c.Next()
	}
}
