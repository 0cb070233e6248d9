package models

import (
	"time"
)

// Profile holds a user's running XP total and current level.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	CurrentXP int       `gorm:"column:current_xp;not null;default:0;index" json:"current_xp"`
	LevelID   uint      `gorm:"not null;default:1" json:"level_id"`
	Level     *Level    `gorm:"foreignKey:LevelID" json:"level,omitempty"`
	AvatarURL string    `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Profile model.
func (Profile) TableName() string {
	return "profiles"
}

// Account is the identity record behind a profile.
type Account struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for Account model.
func (Account) TableName() string {
	return "accounts"
}
