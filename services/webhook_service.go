package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fractal-dashboard/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// errInvalidPayload marks webhook bodies that fail per-event validation.
// These map to 400 instead of 500.
var errInvalidPayload = errors.New("invalid payload")

type WebhookService struct {
	DB           *gorm.DB
	Achievements *AchievementService
}

func NewWebhookService(db *gorm.DB, achievements *AchievementService) *WebhookService {
	return &WebhookService{DB: db, Achievements: achievements}
}

// webhookRequest is the envelope the bot sends: the fractal's Discord
// thread id, an event tag, and an event-specific payload.
type webhookRequest struct {
	FractalID string          `json:"fractalId"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

// HandleEvent dispatches a webhook call to its event handler. Unknown
// events are logged and acknowledged; handlers are no-ops when the thread
// id resolves to no fractal.
func (s *WebhookService) HandleEvent(c *fiber.Ctx) error {
	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.FractalID == "" || req.Event == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "fractalId and event are required"})
	}

	var err error
	switch req.Event {
	case "fractal_started":
		err = s.handleFractalStarted(req.FractalID, req.Data)
	case "vote_cast":
		err = s.handleVoteCast(req.FractalID, req.Data)
	case "round_complete":
		err = s.handleRoundComplete(req.FractalID, req.Data)
	case "fractal_complete":
		err = s.handleFractalComplete(req.FractalID, req.Data)
	case "fractal_paused":
		err = s.setPaused(req.FractalID, true)
	case "fractal_resumed":
		err = s.setPaused(req.FractalID, false)
	default:
		logrus.Warnf("Unknown event type: %s", req.Event)
	}

	if err != nil {
		if errors.Is(err, errInvalidPayload) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		logrus.Errorf("Webhook error (%s, fractal %s): %v", req.Event, req.FractalID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// findFractal resolves a fractal by its Discord thread id. A nil fractal
// with nil error means the fractal is unknown and the event is dropped.
func findFractal(tx *gorm.DB, threadID string) (*models.Fractal, error) {
	var fractal models.Fractal
	err := tx.Where("thread_id = ?", threadID).First(&fractal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fractal, nil
}

type fractalStartedPayload struct {
	CurrentLevel int `json:"currentLevel"`
}

func (s *WebhookService) handleFractalStarted(threadID string, data json.RawMessage) error {
	var payload fractalStartedPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
	}
	if payload.CurrentLevel < 0 {
		return fmt.Errorf("%w: currentLevel must not be negative", errInvalidPayload)
	}

	level := payload.CurrentLevel
	if level == 0 {
		level = models.DefaultStartingLevel
	}

	return s.DB.Model(&models.Fractal{}).
		Where("thread_id = ?", threadID).
		Updates(map[string]interface{}{
			"status":        models.FractalStatusActive,
			"current_level": level,
		}).Error
}

type voteCastPayload struct {
	VoterID     string `json:"voterId"`
	CandidateID string `json:"candidateId"`
	Level       int    `json:"level"`
}

func (s *WebhookService) handleVoteCast(threadID string, data json.RawMessage) error {
	var payload voteCastPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	if payload.VoterID == "" || payload.CandidateID == "" {
		return fmt.Errorf("%w: voterId and candidateId are required", errInvalidPayload)
	}
	if payload.Level <= 0 {
		return fmt.Errorf("%w: level must be positive", errInvalidPayload)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		fractal, err := findFractal(tx, threadID)
		if err != nil || fractal == nil {
			return err
		}

		// Find or create the round for this level.
		var round models.VotingRound
		err = tx.Where("fractal_id = ? AND level = ?", fractal.ID, payload.Level).First(&round).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			round = models.VotingRound{FractalID: fractal.ID, Level: payload.Level}
			if err := tx.Create(&round).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		var voter, candidate models.User
		if err := tx.Where("discord_id = ?", payload.VoterID).First(&voter).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("discord_id = ?", payload.CandidateID).First(&candidate).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		vote := models.Vote{
			RoundID:     round.ID,
			VoterID:     voter.ID,
			CandidateID: candidate.ID,
		}
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}

		// Keep the ballot counters current.
		if err := tx.Model(&voter).
			UpdateColumn("total_votes", gorm.Expr("total_votes + 1")).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.FractalParticipant{}).
			Where("fractal_id = ? AND user_id = ?", fractal.ID, candidate.ID).
			UpdateColumn("total_votes_received", gorm.Expr("total_votes_received + 1")).Error; err != nil {
			return err
		}

		if voter.TotalVotes == 0 {
			return s.Achievements.Award(tx, voter.ID, models.AchievementFirstVote)
		}
		return nil
	})
}

type roundCompletePayload struct {
	Level            int            `json:"level"`
	WinnerID         string         `json:"winnerId"`
	TotalVotes       int            `json:"totalVotes"`
	VoteDistribution map[string]int `json:"voteDistribution"`
}

func (s *WebhookService) handleRoundComplete(threadID string, data json.RawMessage) error {
	var payload roundCompletePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	if payload.Level <= 0 {
		return fmt.Errorf("%w: level must be positive", errInvalidPayload)
	}
	if payload.WinnerID == "" {
		return fmt.Errorf("%w: winnerId is required", errInvalidPayload)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		fractal, err := findFractal(tx, threadID)
		if err != nil || fractal == nil {
			return err
		}

		var winner models.User
		if err := tx.Where("discord_id = ?", payload.WinnerID).First(&winner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		updates := map[string]interface{}{
			"winner_id":    winner.ID,
			"total_votes":  payload.TotalVotes,
			"completed_at": time.Now(),
		}
		if payload.VoteDistribution != nil {
			distribution, err := json.Marshal(payload.VoteDistribution)
			if err != nil {
				return err
			}
			updates["vote_data"] = datatypes.JSON(distribution)
		}
		if err := tx.Model(&models.VotingRound{}).
			Where("fractal_id = ? AND level = ?", fractal.ID, payload.Level).
			Updates(updates).Error; err != nil {
			return err
		}

		if err := recordLevelWon(tx, fractal.ID, winner.ID, payload.Level); err != nil {
			return err
		}

		return tx.Model(&models.Fractal{}).
			Where("id = ?", fractal.ID).
			UpdateColumn("current_level", payload.Level-1).Error
	})
}

// recordLevelWon appends the level to the winning participant's levels_won
// list. Winners without a participant row are skipped.
func recordLevelWon(tx *gorm.DB, fractalID, userID uint, level int) error {
	var participant models.FractalParticipant
	err := tx.Where("fractal_id = ? AND user_id = ?", fractalID, userID).First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var levels []int
	if len(participant.LevelsWon) > 0 {
		if err := json.Unmarshal(participant.LevelsWon, &levels); err != nil {
			return err
		}
	}
	levels = append(levels, level)
	encoded, err := json.Marshal(levels)
	if err != nil {
		return err
	}

	return tx.Model(&participant).UpdateColumn("levels_won", datatypes.JSON(encoded)).Error
}

type fractalResult struct {
	DiscordID string `json:"discordId"`
	Rank      int    `json:"rank"`
}

type fractalCompletePayload struct {
	Results []fractalResult `json:"results"`
}

func (s *WebhookService) handleFractalComplete(threadID string, data json.RawMessage) error {
	var payload fractalCompletePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	if payload.Results == nil {
		return fmt.Errorf("%w: results is required", errInvalidPayload)
	}
	for _, result := range payload.Results {
		if result.DiscordID == "" || result.Rank <= 0 {
			return fmt.Errorf("%w: each result needs a discordId and a positive rank", errInvalidPayload)
		}
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		fractal, err := findFractal(tx, threadID)
		if err != nil || fractal == nil {
			return err
		}

		if err := tx.Model(&models.Fractal{}).
			Where("id = ?", fractal.ID).
			Updates(map[string]interface{}{
				"status":       models.FractalStatusCompleted,
				"completed_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		for _, result := range payload.Results {
			var user models.User
			if err := tx.Where("discord_id = ?", result.DiscordID).First(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}

			isWinner := result.Rank == 1
			updates := map[string]interface{}{
				"total_fractals": gorm.Expr("total_fractals + 1"),
			}
			if isWinner {
				updates["total_wins"] = gorm.Expr("total_wins + 1")
			}
			if err := tx.Model(&models.User{}).
				Where("id = ?", user.ID).
				Updates(updates).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.FractalParticipant{}).
				Where("fractal_id = ? AND user_id = ?", fractal.ID, user.ID).
				UpdateColumn("final_rank", result.Rank).Error; err != nil {
				return err
			}

			if isWinner {
				if err := s.Achievements.Award(tx, user.ID, models.AchievementFirstWin); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

func (s *WebhookService) setPaused(threadID string, paused bool) error {
	return s.DB.Model(&models.Fractal{}).
		Where("thread_id = ?", threadID).
		UpdateColumn("is_paused", paused).Error
}
