package services

import (
	"time"

	"fractal-dashboard/config"
	"fractal-dashboard/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SystemService struct {
	DB     *gorm.DB
	Config *config.Config
}

func NewSystemService(db *gorm.DB, cfg *config.Config) *SystemService {
	return &SystemService{DB: db, Config: cfg}
}

// Health reports process liveness and which required configuration values
// are present. No side effects.
func (s *SystemService) Health(c *fiber.Ctx) error {
	envCheck := fiber.Map{
		"hasDiscordClientId":     s.Config.DiscordClientID != "",
		"hasDiscordClientSecret": s.Config.DiscordClientSecret != "",
		"hasBaseUrl":             s.Config.BaseURL != "",
		"hasSessionSecret":       s.Config.SessionSecret != "",
		"hasDatabaseUrl":         s.Config.DatabaseURL != "",
		"hasWebhookSecret":       s.Config.WebhookSecret != "",
		"environment":            s.Config.Environment,
	}

	return c.JSON(fiber.Map{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": envCheck,
		"message":     "Fractal dashboard API is running",
	})
}

// Migrate creates the schema if absent and reports the current user count.
// Safe to run repeatedly; intended as a one-time operational action.
func (s *SystemService) Migrate(c *fiber.Ctx) error {
	logrus.Info("🔄 Starting database migration...")

	if err := s.DB.AutoMigrate(
		&models.User{},
		&models.Fractal{},
		&models.FractalParticipant{},
		&models.VotingRound{},
		&models.Vote{},
		&models.Achievement{},
	); err != nil {
		logrus.Errorf("❌ Migration failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Migration failed",
			"details": err.Error(),
		})
	}

	var userCount int64
	if err := s.DB.Model(&models.User{}).Count(&userCount).Error; err != nil {
		logrus.Errorf("❌ Migration verification failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Migration failed",
			"details": err.Error(),
		})
	}

	logrus.Infof("✅ Database migration completed, %d users present", userCount)
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Database migration completed successfully!",
		"userCount": userCount,
	})
}
