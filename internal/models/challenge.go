package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChallengeType is a writing discipline.
type ChallengeType string

// ChallengeType constants, in display order.
const (
	ChallengeTypeCopywriting ChallengeType = "copywriting"
	ChallengeTypeContent     ChallengeType = "content"
	ChallengeTypeUXWriting   ChallengeType = "uxwriting"
)

// ChallengeTypes lists every challenge type in display order.
var ChallengeTypes = []ChallengeType{
	ChallengeTypeCopywriting,
	ChallengeTypeContent,
	ChallengeTypeUXWriting,
}

// Valid reports whether t is a known challenge type.
func (t ChallengeType) Valid() bool {
	for _, known := range ChallengeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Difficulty is the calibrated difficulty of a challenge.
type Difficulty string

// Difficulty constants.
const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Challenge is a writing task descriptor. Challenges are immutable once created.
type Challenge struct {
	ID            string                      `gorm:"primaryKey;size:36" json:"id"`
	Slug          string                      `gorm:"size:160;index" json:"slug"`
	Type          ChallengeType               `gorm:"size:20;not null;index" json:"type"`
	Difficulty    Difficulty                  `gorm:"size:10;not null" json:"difficulty"`
	Title         string                      `gorm:"type:text;not null" json:"title"`
	Description   string                      `gorm:"type:text" json:"description"`
	Brief         string                      `gorm:"type:text;not null" json:"brief"`
	Guidelines    datatypes.JSONSlice[string] `json:"guidelines"`
	WordLimit     int                         `gorm:"not null" json:"word_limit"`
	TimeEstimate  string                      `gorm:"size:50" json:"time_estimate"`
	ExamplePrompt *string                     `gorm:"type:text" json:"example_prompt,omitempty"`
	MinLevelID    uint                        `gorm:"not null;default:1" json:"min_level_id"`
	Language      string                      `gorm:"size:35;default:en" json:"language"`
	CreatedAt     time.Time                   `json:"created_at"`
}

// TableName specifies the table name for Challenge model.
func (Challenge) TableName() string {
	return "challenges"
}

// ChallengeStatus is the lifecycle state of a user's assigned challenge.
type ChallengeStatus string

// ChallengeStatus constants.
const (
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusCompleted ChallengeStatus = "completed"
)

// UserChallenge assigns a challenge to a user's queue.
type UserChallenge struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	UserID      string          `gorm:"size:36;not null;uniqueIndex:idx_user_challenge;index:idx_user_status" json:"user_id"`
	ChallengeID string          `gorm:"size:36;not null;uniqueIndex:idx_user_challenge" json:"challenge_id"`
	Challenge   *Challenge      `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	Status      ChallengeStatus `gorm:"size:20;not null;default:active;index:idx_user_status" json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for UserChallenge model.
func (UserChallenge) TableName() string {
	return "user_challenges"
}

// CanTransitionTo reports whether the assignment may move to next.
// The only edge is active -> completed.
func (uc *UserChallenge) CanTransitionTo(next ChallengeStatus) bool {
	return uc.Status == ChallengeStatusActive && next == ChallengeStatusCompleted
}
