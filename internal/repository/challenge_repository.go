package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimd54/penpath/internal/models"
)

// ChallengeRepository handles challenge and assignment database operations.
type ChallengeRepository struct {
	db *DB
}

// NewChallengeRepository creates a new challenge repository.
func NewChallengeRepository(db *DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// CreateForUser stores challenges and assigns each one to userID as active, in one transaction.
// Empty ids are filled in. Assignment timestamps increase in slice order so a
// batch lists back in the order it was generated.
func (r *ChallengeRepository) CreateForUser(ctx context.Context, userID string, challenges []models.Challenge) error {
	if len(challenges) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base := time.Now().UTC()
		assignments := make([]models.UserChallenge, 0, len(challenges))
		for i := range challenges {
			// microsecond steps survive postgres timestamp precision
			createdAt := base.Add(time.Duration(i) * time.Microsecond)
			if challenges[i].ID == "" {
				challenges[i].ID = uuid.NewString()
			}
			assignments = append(assignments, models.UserChallenge{
				ID:          uuid.NewString(),
				UserID:      userID,
				ChallengeID: challenges[i].ID,
				Status:      models.ChallengeStatusActive,
				CreatedAt:   createdAt,
				UpdatedAt:   createdAt,
			})
		}

		if err := tx.Create(&challenges).Error; err != nil {
			return fmt.Errorf("failed to create challenges: %w", err)
		}
		if err := tx.Create(&assignments).Error; err != nil {
			return fmt.Errorf("failed to assign challenges to user %s: %w", userID, err)
		}
		return nil
	})
}

// GetByID retrieves a challenge by ID.
func (r *ChallengeRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&challenge).Error; err != nil {
		return nil, fmt.Errorf("failed to get challenge %s: %w", id, err)
	}
	return &challenge, nil
}

// ListActiveForUser returns the user's active challenges in assignment order.
func (r *ChallengeRepository) ListActiveForUser(ctx context.Context, userID string) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.WithContext(ctx).
		Joins("JOIN user_challenges ON user_challenges.challenge_id = challenges.id").
		Where("user_challenges.user_id = ? AND user_challenges.status = ?", userID, models.ChallengeStatusActive).
		Order("user_challenges.created_at ASC").
		Order("challenges.id ASC").
		Find(&challenges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active challenges for user %s: %w", userID, err)
	}
	return challenges, nil
}

// GetAssignment retrieves the user's assignment for a challenge.
func (r *ChallengeRepository) GetAssignment(ctx context.Context, userID, challengeID string) (*models.UserChallenge, error) {
	var assignment models.UserChallenge
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		First(&assignment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment of challenge %s for user %s: %w", challengeID, userID, err)
	}
	return &assignment, nil
}

// CountActiveByUser returns each user's active assignments counted per challenge type.
// Users without active assignments are absent.
func (r *ChallengeRepository) CountActiveByUser(ctx context.Context) (map[string]map[models.ChallengeType]int, error) {
	var rows []struct {
		UserID string
		Type   models.ChallengeType
		Count  int
	}
	err := r.db.WithContext(ctx).
		Model(&models.UserChallenge{}).
		Select("user_challenges.user_id, challenges.type, COUNT(*) AS count").
		Joins("JOIN challenges ON challenges.id = user_challenges.challenge_id").
		Where("user_challenges.status = ?", models.ChallengeStatusActive).
		Group("user_challenges.user_id, challenges.type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active challenges: %w", err)
	}

	counts := make(map[string]map[models.ChallengeType]int)
	for _, row := range rows {
		if counts[row.UserID] == nil {
			counts[row.UserID] = make(map[models.ChallengeType]int, len(models.ChallengeTypes))
		}
		counts[row.UserID][row.Type] = row.Count
	}
	return counts, nil
}
