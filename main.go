package main

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fractal-dashboard/config"
	"fractal-dashboard/handlers"
	"fractal-dashboard/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Println("⚠️  No .env file found, reading environment variables directly")
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		AppName: "fractal-dashboard",
	})

	app.Use(logger.New())

	// Session cookies are encrypted with a key derived from SESSION_SECRET.
	if cfg.SessionSecret != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{
			Key: deriveCookieKey(cfg.SessionSecret),
		}))
	} else {
		logrus.Println("⚠️  SESSION_SECRET not set, session cookies are not encrypted")
	}

	// Allowed origins come from the environment as a comma-separated list.
	allowedOriginsList := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logrus.Fatal("failed to connect to database: ", err)
	}

	store := session.New(session.Config{
		KeyLookup:      "cookie:fractal_session",
		Expiration:     7 * 24 * time.Hour,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})

	achievementService := services.NewAchievementService(db)
	authService := services.NewAuthService(db, store, cfg)
	fractalService := services.NewFractalService(db, achievementService)
	webhookService := services.NewWebhookService(db, achievementService)
	systemService := services.NewSystemService(db, cfg)

	handlers.SetupAuthRoutes(app, authService, achievementService, store)
	handlers.SetupFractalRoutes(app, fractalService, store)
	handlers.SetupWebhookRoutes(app, webhookService, cfg.WebhookSecret)
	handlers.SetupSystemRoutes(app, systemService)

	// Dashboard assets
	app.Static("/", "./public")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.Errorf("Server error: %v", err)
		}
	}()

	logrus.Printf("✅ Server running on %s (port %s)", cfg.BaseURL, cfg.Port)
	logrus.Printf("✅ CORS configured for origins: %s", allowedOriginsString)
	logrus.Println("✅ Webhook endpoint secured with shared secret")

	<-ctx.Done()
	logrus.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		logrus.Errorf("Shutdown error: %v", err)
	}
}

// deriveCookieKey turns the session secret into the 32-byte base64 key the
// cookie encryption middleware expects.
func deriveCookieKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}
