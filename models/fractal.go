package models

import (
	"time"

	"gorm.io/datatypes"
)

// Fractal statuses.
const (
	FractalStatusActive    = "active"
	FractalStatusCompleted = "completed"
	FractalStatusCancelled = "cancelled"
)

// DefaultStartingLevel is the level a fractal counts down from.
const DefaultStartingLevel = 6

// Fractal is one elimination-voting session tied to a Discord thread.
// It is created through the REST API when the bot opens a session and
// mutated only by webhook events after that.
type Fractal struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	ThreadID         string     `json:"threadId" gorm:"uniqueIndex;size:255"`
	Name             string     `json:"name" gorm:"not null;size:255"`
	GuildID          string     `json:"guildId" gorm:"not null;size:255"`
	FacilitatorID    *uint      `json:"facilitatorId,omitempty"`
	Status           string     `json:"status" gorm:"size:50;default:'active'"`
	ParticipantCount int        `json:"participantCount" gorm:"default:0"`
	CurrentLevel     int        `json:"currentLevel" gorm:"default:6"`
	IsPaused         bool       `json:"isPaused" gorm:"default:false"`
	CreatedAt        time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`

	// Relationships
	Facilitator  *User                `json:"facilitator,omitempty" gorm:"foreignKey:FacilitatorID"`
	Participants []FractalParticipant `json:"participants,omitempty" gorm:"foreignKey:FractalID"`
	Rounds       []VotingRound        `json:"rounds,omitempty" gorm:"foreignKey:FractalID"`
}

// FractalParticipant links a user into a fractal and accumulates their
// per-session results.
type FractalParticipant struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	FractalID          uint           `json:"fractalId" gorm:"not null;index"`
	UserID             uint           `json:"userId" gorm:"not null;index"`
	JoinedAt           time.Time      `json:"joinedAt" gorm:"autoCreateTime"`
	FinalRank          *int           `json:"finalRank,omitempty"`
	LevelsWon          datatypes.JSON `json:"levelsWon,omitempty"` // array of level numbers
	TotalVotesReceived int            `json:"totalVotesReceived" gorm:"default:0"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// VotingRound is one elimination level within a fractal. Created lazily on
// the first vote for a level, completed when the bot reports the result.
type VotingRound struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	FractalID   uint           `json:"fractalId" gorm:"not null;uniqueIndex:idx_voting_rounds_fractal_level"`
	Level       int            `json:"level" gorm:"not null;uniqueIndex:idx_voting_rounds_fractal_level"` // 6, 5, 4, 3, 2, 1
	WinnerID    *uint          `json:"winnerId,omitempty"`
	TotalVotes  int            `json:"totalVotes" gorm:"default:0"`
	VoteData    datatypes.JSON `json:"voteData,omitempty"` // vote distribution reported by the bot
	CreatedAt   time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`

	Winner *User  `json:"winner,omitempty" gorm:"foreignKey:WinnerID"`
	Votes  []Vote `json:"votes,omitempty" gorm:"foreignKey:RoundID"`
}

// Vote is one ballot. The (round, voter) unique index enforces one vote per
// voter per round; a duplicate insert fails at the persistence layer.
type Vote struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RoundID     uint      `json:"roundId" gorm:"not null;uniqueIndex:idx_votes_round_voter"`
	VoterID     uint      `json:"voterId" gorm:"not null;uniqueIndex:idx_votes_round_voter"`
	CandidateID uint      `json:"candidateId" gorm:"not null;index"`
	VotedAt     time.Time `json:"votedAt" gorm:"autoCreateTime"`
}
