package models

import (
	"time"
)

// Achievement is a badge earned by a user. Rows are append-only.
type Achievement struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"userId" gorm:"not null;index"`
	Type        string    `json:"type" gorm:"not null;size:100"` // 'first_win', 'facilitator', etc.
	Title       string    `json:"title" gorm:"not null;size:255"`
	Description string    `json:"description" gorm:"type:text"`
	IconURL     string    `json:"iconUrl" gorm:"size:500"`
	EarnedAt    time.Time `json:"earnedAt" gorm:"autoCreateTime"`
}

// Achievement type tags.
const (
	AchievementFirstWin    = "first_win"
	AchievementFacilitator = "facilitator"
	AchievementFirstVote   = "voter"
)

// AchievementCatalog defines the badges the system can award, keyed by type.
var AchievementCatalog = map[string]Achievement{
	AchievementFirstWin: {
		Type:        AchievementFirstWin,
		Title:       "First Victory",
		Description: "Won your first fractal",
		IconURL:     "/icons/first-win.svg",
	},
	AchievementFacilitator: {
		Type:        AchievementFacilitator,
		Title:       "Facilitator",
		Description: "Started a fractal session",
		IconURL:     "/icons/facilitator.svg",
	},
	AchievementFirstVote: {
		Type:        AchievementFirstVote,
		Title:       "Voter",
		Description: "Cast your first vote",
		IconURL:     "/icons/voter.svg",
	},
}
