// Package models defines domain models for the writing-practice system.
package models

// Level is a career tier gated by a minimum XP threshold.
type Level struct {
	ID          uint   `gorm:"primaryKey;autoIncrement:false" json:"id" yaml:"id"`
	Title       string `gorm:"size:100;not null" json:"title" yaml:"title"`
	RequiredXP  int    `gorm:"column:required_xp;not null;uniqueIndex" json:"required_xp" yaml:"required_xp"`
	Description string `gorm:"type:text" json:"description" yaml:"description"`
}

// TableName specifies the table name for Level model.
func (Level) TableName() string {
	return "levels"
}

// FirstLevelID is the id every new profile starts at.
const FirstLevelID uint = 1
