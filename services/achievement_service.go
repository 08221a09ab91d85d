package services

import (
	"fmt"

	"fractal-dashboard/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AchievementService struct {
	DB *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

// Award grants a catalog achievement to a user once. Re-awarding an
// achievement the user already holds is a no-op. The given tx may be a
// transaction handle so awarding joins the caller's transaction.
func (s *AchievementService) Award(tx *gorm.DB, userID uint, kind string) error {
	template, ok := models.AchievementCatalog[kind]
	if !ok {
		return fmt.Errorf("unknown achievement type: %s", kind)
	}

	var count int64
	if err := tx.Model(&models.Achievement{}).
		Where("user_id = ? AND type = ?", userID, kind).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	achievement := models.Achievement{
		UserID:      userID,
		Type:        template.Type,
		Title:       template.Title,
		Description: template.Description,
		IconURL:     template.IconURL,
	}
	if err := tx.Create(&achievement).Error; err != nil {
		return err
	}

	logrus.Infof("🎖️ Achievement awarded: %s → user %d", template.Title, userID)
	return nil
}

// ListMine returns the signed-in user's achievements, newest first.
func (s *AchievementService) ListMine(c *fiber.Ctx) error {
	discordID := c.Locals("discord_id").(string)

	var user models.User
	if err := s.DB.Where("discord_id = ?", discordID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var achievements []models.Achievement
	if err := s.DB.Where("user_id = ?", user.ID).
		Order("earned_at DESC").
		Find(&achievements).Error; err != nil {
		logrus.Errorf("Error fetching achievements for %s: %v", discordID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(achievements)
}
