package repository

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aimd54/penpath/internal/models"
)

func testLevels() []models.Level {
	return []models.Level{
		{ID: 1, Title: "Intern", RequiredXP: 0},
		{ID: 2, Title: "Trainee", RequiredXP: 400},
		{ID: 3, Title: "Junior Associate", RequiredXP: 1000},
	}
}

// setupTestDB creates an in-memory SQLite database with every table and the test levels.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Each connection to :memory: is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	// Enable foreign key constraints (SQLite default is off)
	db.Exec("PRAGMA foreign_keys = ON")

	wrapped := &DB{db}
	if err := wrapped.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}
	if err := NewLevelRepository(wrapped).Upsert(context.Background(), testLevels()); err != nil {
		t.Fatalf("Failed to seed levels: %v", err)
	}

	return wrapped
}

// createTestProfile creates a profile with the given XP and level.
func createTestProfile(t *testing.T, db *DB, id string, xp int, levelID uint) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		ID:        id,
		FullName:  "Writer " + id,
		CurrentXP: xp,
		LevelID:   levelID,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}
	return profile
}

// assignTestChallenges creates n challenges of type t assigned to userID.
func assignTestChallenges(t *testing.T, db *DB, userID string, ct models.ChallengeType, n int) []models.Challenge {
	t.Helper()

	challenges := make([]models.Challenge, n)
	for i := range challenges {
		challenges[i] = models.Challenge{
			Type:       ct,
			Difficulty: models.DifficultyEasy,
			Title:      fmt.Sprintf("%s challenge %d", ct, i),
			Brief:      "Write something short.",
			Guidelines: []string{"Be clear", "Be brief"},
			WordLimit:  50,
			MinLevelID: 1,
			Language:   "en",
		}
	}
	if err := NewChallengeRepository(db).CreateForUser(context.Background(), userID, challenges); err != nil {
		t.Fatalf("Failed to assign test challenges: %v", err)
	}
	return challenges
}
