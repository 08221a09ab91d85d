package handlers

import (
	"fractal-dashboard/middleware"
	"fractal-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWebhookRoutes(app *fiber.App, webhookService *services.WebhookService, secret string) {
	// 🔐 Bearer-secret authenticated, called only by the Discord bot
	app.Post("/webhook", middleware.WebhookAuth(secret), webhookService.HandleEvent)
}
