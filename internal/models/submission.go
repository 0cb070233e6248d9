package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission is one scored attempt at a challenge. Submissions are append-only.
type Submission struct {
	ID             string                      `gorm:"primaryKey;size:36" json:"id"`
	UserID         string                      `gorm:"size:36;not null;index" json:"user_id"`
	ChallengeID    string                      `gorm:"size:36;not null;index" json:"challenge_id"`
	Challenge      *Challenge                  `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	Response       string                      `gorm:"type:text;not null" json:"response"`
	Score          int                         `gorm:"not null" json:"score"`
	Feedback       datatypes.JSONSlice[string] `json:"feedback"`
	ImprovementTip string                      `gorm:"type:text" json:"improvement_tip"`
	XPGained       int                         `gorm:"column:xp_gained;not null" json:"xp_gained"`
	CreatedAt      time.Time                   `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Submission model.
func (Submission) TableName() string {
	return "submissions"
}
