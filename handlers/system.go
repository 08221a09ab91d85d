package handlers

import (
	"fractal-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSystemRoutes(app *fiber.App, systemService *services.SystemService) {
	app.Get("/health", systemService.Health)
	app.Post("/migrate", systemService.Migrate)
}
