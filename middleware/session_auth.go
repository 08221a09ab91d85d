package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// RequireSession guards dashboard routes. A request without a signed-in
// session gets a 401 and never reaches the handler; otherwise the signed-in
// user's Discord id is attached to the request context.
func RequireSession(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		discordID, _ := sess.Get("discord_id").(string)
		if discordID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		c.Locals("discord_id", discordID)
		return c.Next()
	}
}
