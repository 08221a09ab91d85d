package handlers

import (
	"fractal-dashboard/middleware"
	"fractal-dashboard/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService, achievementService *services.AchievementService, store *session.Store) {
	// 🔓 OAuth flow
	app.Get("/auth/login", authService.Login)
	app.Get("/auth/callback", authService.Callback)
	app.Post("/auth/logout", authService.Logout)

	// 🔐 Signed-in session
	secured := app.Group("/auth", middleware.RequireSession(store))
	secured.Get("/session", authService.Session)
	secured.Put("/wallet", authService.UpdateWallet)
	secured.Get("/achievements", achievementService.ListMine)
}
