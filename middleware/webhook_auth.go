package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// WebhookAuth checks the shared bearer secret the bot sends with every
// webhook call. The comparison is constant-time.
func WebhookAuth(secret string) fiber.Handler {
	expected := []byte("Bearer " + secret)
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		header := []byte(c.Get(fiber.HeaderAuthorization))
		if len(header) != len(expected) || subtle.ConstantTimeCompare(header, expected) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		return c.Next()
	}
}
