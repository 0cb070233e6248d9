package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/progression"
)

// ErrChallengeNotActive is returned when a scored submission targets an
// assignment that is missing or already completed.
var ErrChallengeNotActive = errors.New("challenge is not active for user")

// ProgressStore applies XP changes together with the records that cause them.
// Every method runs in a single transaction and increments XP on the database
// side, so concurrent awards for one user never lose updates.
type ProgressStore struct {
	db *DB
}

// NewProgressStore creates a new progress store.
func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// RecordScoredSubmission completes the assignment, stores the submission and
// awards its XP, recomputing the level against levels.
func (s *ProgressStore) RecordScoredSubmission(ctx context.Context, submission *models.Submission, levels []models.Level) (progression.Award, error) {
	if submission.XPGained <= 0 {
		return progression.Award{}, fmt.Errorf("%w: got %d", progression.ErrNonPositiveAward, submission.XPGained)
	}

	var award progression.Award
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		res := tx.Model(&models.UserChallenge{}).
			Where("user_id = ? AND challenge_id = ? AND status = ?",
				submission.UserID, submission.ChallengeID, models.ChallengeStatusActive).
			Updates(map[string]interface{}{
				"status":       models.ChallengeStatusCompleted,
				"completed_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete challenge %s: %w", submission.ChallengeID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrChallengeNotActive
		}

		if submission.ID == "" {
			submission.ID = uuid.NewString()
		}
		if err := tx.Omit(clause.Associations).Create(submission).Error; err != nil {
			return fmt.Errorf("failed to create submission: %w", err)
		}

		res = tx.Model(&models.Profile{}).
			Where("id = ?", submission.UserID).
			Update("current_xp", gorm.Expr("current_xp + ?", submission.XPGained))
		if res.Error != nil {
			return fmt.Errorf("failed to award xp to user %s: %w", submission.UserID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("failed to award xp to user %s: %w", submission.UserID, gorm.ErrRecordNotFound)
		}

		var profile models.Profile
		if err := tx.Where("id = ?", submission.UserID).First(&profile).Error; err != nil {
			return fmt.Errorf("failed to reload profile %s: %w", submission.UserID, err)
		}

		newLevelID := progression.ComputeLevel(levels, profile.CurrentXP, profile.LevelID)
		if newLevelID != profile.LevelID {
			err := tx.Model(&models.Profile{}).
				Where("id = ? AND level_id < ?", profile.ID, newLevelID).
				Update("level_id", newLevelID).Error
			if err != nil {
				return fmt.Errorf("failed to update level of user %s: %w", profile.ID, err)
			}
		}

		award = progression.Award{
			Amount:          submission.XPGained,
			PreviousXP:      profile.CurrentXP - submission.XPGained,
			NewXP:           profile.CurrentXP,
			PreviousLevelID: profile.LevelID,
			NewLevelID:      newLevelID,
		}
		return nil
	})
	if err != nil {
		return progression.Award{}, err
	}
	return award, nil
}

// DeleteSubmission removes one of the user's submissions and takes its XP
// back, never below zero. The level is re-evaluated according to policy.
// The assignment stays completed.
func (s *ProgressStore) DeleteSubmission(ctx context.Context, userID, submissionID string, levels []models.Level, policy progression.DemotionPolicy) (*models.Submission, progression.Adjustment, error) {
	var (
		deleted    models.Submission
		adjustment progression.Adjustment
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", submissionID, userID).First(&deleted).Error; err != nil {
			return fmt.Errorf("failed to get submission %s: %w", submissionID, err)
		}

		// Hold the profile row so concurrent awards wait and PreviousXP is the
		// value the deduction starts from.
		var before models.Profile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&before).Error; err != nil {
			return fmt.Errorf("failed to get profile %s: %w", userID, err)
		}

		if err := tx.Delete(&deleted).Error; err != nil {
			return fmt.Errorf("failed to delete submission %s: %w", submissionID, err)
		}

		amount := deleted.XPGained
		err := tx.Model(&models.Profile{}).
			Where("id = ?", userID).
			Update("current_xp", gorm.Expr("CASE WHEN current_xp >= ? THEN current_xp - ? ELSE 0 END", amount, amount)).Error
		if err != nil {
			return fmt.Errorf("failed to deduct xp from user %s: %w", userID, err)
		}

		var after models.Profile
		if err := tx.Where("id = ?", userID).First(&after).Error; err != nil {
			return fmt.Errorf("failed to reload profile %s: %w", userID, err)
		}

		newLevelID := progression.LevelAfterDeduction(levels, after.CurrentXP, after.LevelID, policy)
		if newLevelID != after.LevelID {
			if err := tx.Model(&models.Profile{}).Where("id = ?", userID).Update("level_id", newLevelID).Error; err != nil {
				return fmt.Errorf("failed to update level of user %s: %w", userID, err)
			}
		}

		adjustment = progression.Adjustment{
			Amount:          amount,
			PreviousXP:      before.CurrentXP,
			NewXP:           after.CurrentXP,
			PreviousLevelID: after.LevelID,
			NewLevelID:      newLevelID,
		}
		return nil
	})
	if err != nil {
		return nil, progression.Adjustment{}, err
	}
	return &deleted, adjustment, nil
}
