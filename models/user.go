package models

import (
	"time"
)

// User is a Discord-identified participant. Rows are created or refreshed on
// OAuth sign-in; the aggregate counters are maintained by webhook events.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DiscordID     string    `gorm:"uniqueIndex;not null;size:255" json:"discordId"`
	Username      string    `gorm:"not null;size:255" json:"username"`
	DisplayName   string    `gorm:"size:255" json:"displayName"`
	AvatarURL     string    `gorm:"size:500" json:"avatarUrl"`
	WalletAddress *string   `gorm:"uniqueIndex;size:255" json:"walletAddress,omitempty"`
	WalletType    string    `gorm:"size:50" json:"walletType,omitempty"` // 'ethereum', 'solana', etc.
	TotalFractals int       `gorm:"default:0" json:"totalFractals"`
	TotalWins     int       `gorm:"default:0" json:"totalWins"`
	TotalVotes    int       `gorm:"default:0" json:"totalVotes"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// UserSummary is the facilitator shape embedded in fractal listings.
type UserSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}
