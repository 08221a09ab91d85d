package services

import (
	"errors"
	"time"

	"fractal-dashboard/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type FractalService struct {
	DB           *gorm.DB
	Achievements *AchievementService
}

func NewFractalService(db *gorm.DB, achievements *AchievementService) *FractalService {
	return &FractalService{DB: db, Achievements: achievements}
}

// fractalSummary is the listing shape: the fractal row joined with a
// facilitator summary.
type fractalSummary struct {
	ID               uint                `json:"id"`
	ThreadID         string              `json:"threadId"`
	Name             string              `json:"name"`
	GuildID          string              `json:"guildId"`
	Status           string              `json:"status"`
	ParticipantCount int                 `json:"participantCount"`
	CurrentLevel     int                 `json:"currentLevel"`
	IsPaused         bool                `json:"isPaused"`
	CreatedAt        time.Time           `json:"createdAt"`
	CompletedAt      *time.Time          `json:"completedAt"`
	Facilitator      *models.UserSummary `json:"facilitator"`
}

// ListFractals returns up to 50 fractals, newest first.
func (s *FractalService) ListFractals(c *fiber.Ctx) error {
	var fractals []models.Fractal
	if err := s.DB.Preload("Facilitator").
		Order("created_at DESC").
		Limit(50).
		Find(&fractals).Error; err != nil {
		logrus.Errorf("Error fetching fractals: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	summaries := make([]fractalSummary, len(fractals))
	for i, f := range fractals {
		summaries[i] = fractalSummary{
			ID:               f.ID,
			ThreadID:         f.ThreadID,
			Name:             f.Name,
			GuildID:          f.GuildID,
			Status:           f.Status,
			ParticipantCount: f.ParticipantCount,
			CurrentLevel:     f.CurrentLevel,
			IsPaused:         f.IsPaused,
			CreatedAt:        f.CreatedAt,
			CompletedAt:      f.CompletedAt,
		}
		if f.Facilitator != nil {
			facilitator := f.Facilitator.Summary()
			summaries[i].Facilitator = &facilitator
		}
	}

	return c.JSON(summaries)
}

type createFractalRequest struct {
	ThreadID              string   `json:"threadId"`
	Name                  string   `json:"name"`
	GuildID               string   `json:"guildId"`
	FacilitatorDiscordID  string   `json:"facilitatorDiscordId"`
	ParticipantDiscordIDs []string `json:"participantDiscordIds"`
}

// CreateFractal registers a new fractal session. Participant ids that do
// not resolve to a known user are skipped; a persistence failure rolls the
// whole creation back.
func (s *FractalService) CreateFractal(c *fiber.Ctx) error {
	var req createFractalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ThreadID == "" || req.Name == "" || req.GuildID == "" || req.FacilitatorDiscordID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "threadId, name, guildId, and facilitatorDiscordId are required",
		})
	}

	var facilitator models.User
	if err := s.DB.Where("discord_id = ?", req.FacilitatorDiscordID).First(&facilitator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Facilitator not found"})
		}
		logrus.Errorf("Error resolving facilitator: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	fractal := models.Fractal{
		ThreadID:         req.ThreadID,
		Name:             req.Name,
		GuildID:          req.GuildID,
		FacilitatorID:    &facilitator.ID,
		Status:           models.FractalStatusActive,
		ParticipantCount: len(req.ParticipantDiscordIDs),
		CurrentLevel:     models.DefaultStartingLevel,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&fractal).Error; err != nil {
			return err
		}

		for _, discordID := range req.ParticipantDiscordIDs {
			var user models.User
			if err := tx.Where("discord_id = ?", discordID).First(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					logrus.Warnf("Skipping unknown participant %s for fractal %s", discordID, req.ThreadID)
					continue
				}
				return err
			}
			participant := models.FractalParticipant{
				FractalID: fractal.ID,
				UserID:    user.ID,
			}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
		}

		return s.Achievements.Award(tx, facilitator.ID, models.AchievementFacilitator)
	})
	if err != nil {
		logrus.Errorf("Error creating fractal: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fractal)
}

// GetFractal returns one fractal with its facilitator, participants and
// rounds for the dashboard detail view.
func (s *FractalService) GetFractal(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid fractal id"})
	}

	var fractal models.Fractal
	err = s.DB.Preload("Facilitator").
		Preload("Participants.User").
		Preload("Rounds", func(db *gorm.DB) *gorm.DB {
			return db.Order("voting_rounds.level DESC")
		}).
		Preload("Rounds.Winner").
		First(&fractal, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Fractal not found"})
	}
	if err != nil {
		logrus.Errorf("Error fetching fractal %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(fractal)
}
