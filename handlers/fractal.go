package handlers

import (
	"fractal-dashboard/middleware"
	"fractal-dashboard/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

func SetupFractalRoutes(app *fiber.App, fractalService *services.FractalService, store *session.Store) {
	// 🔐 All fractal routes require a signed-in session
	secured := app.Group("/fractals", middleware.RequireSession(store))
	secured.Get("/", fractalService.ListFractals)
	secured.Post("/", fractalService.CreateFractal)
	secured.Get("/:id", fractalService.GetFractal)
}
