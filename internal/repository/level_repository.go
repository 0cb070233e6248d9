package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/aimd54/penpath/internal/models"
)

// LevelRepository handles Level Table database operations.
type LevelRepository struct {
	db *DB
}

// NewLevelRepository creates a new level repository.
func NewLevelRepository(db *DB) *LevelRepository {
	return &LevelRepository{db: db}
}

// List returns every level ordered by id.
func (r *LevelRepository) List(ctx context.Context) ([]models.Level, error) {
	var levels []models.Level
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&levels).Error; err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	return levels, nil
}

// Upsert inserts or updates levels by id.
func (r *LevelRepository) Upsert(ctx context.Context, levels []models.Level) error {
	if len(levels) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "required_xp", "description"}),
	}).Create(&levels).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d levels: %w", len(levels), err)
	}
	return nil
}
