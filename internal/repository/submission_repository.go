package repository

import (
	"context"
	"fmt"

	"github.com/aimd54/penpath/internal/models"
)

// SubmissionRepository handles submission read operations. Writes go through ProgressStore.
type SubmissionRepository struct {
	db *DB
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// SubmissionStats aggregates a user's submissions.
type SubmissionStats struct {
	TotalSubmissions int64   `gorm:"column:total_submissions" json:"total_submissions"`
	TotalXP          int64   `gorm:"column:total_xp" json:"total_xp"`
	AverageScore     float64 `gorm:"column:average_score" json:"average_score"`
}

// ListByUser returns the user's submissions newest first with their challenge preloaded.
// A non-empty challengeType keeps only submissions for that type.
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string, challengeType models.ChallengeType) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).
		Preload("Challenge").
		Where("submissions.user_id = ?", userID)

	if challengeType != "" {
		query = query.
			Joins("JOIN challenges ON challenges.id = submissions.challenge_id").
			Where("challenges.type = ?", challengeType)
	}

	var submissions []models.Submission
	if err := query.Order("submissions.created_at DESC").Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions for user %s: %w", userID, err)
	}
	return submissions, nil
}

// GetForUser retrieves one of the user's submissions with its challenge.
func (r *SubmissionRepository) GetForUser(ctx context.Context, userID, id string) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Challenge").
		Where("id = ? AND user_id = ?", id, userID).
		First(&submission).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get submission %s: %w", id, err)
	}
	return &submission, nil
}

// StatsForUser returns submission count, XP earned and mean score for the user.
func (r *SubmissionRepository) StatsForUser(ctx context.Context, userID string) (*SubmissionStats, error) {
	var stats SubmissionStats
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("COUNT(*) AS total_submissions, COALESCE(SUM(xp_gained), 0) AS total_xp, COALESCE(AVG(score), 0) AS average_score").
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute submission stats for user %s: %w", userID, err)
	}
	return &stats, nil
}
