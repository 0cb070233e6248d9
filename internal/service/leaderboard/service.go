// Package leaderboard provides leaderboard and ranking services.
package leaderboard

import (
	"context"
	"sort"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/progression"
	"github.com/aimd54/penpath/internal/repository"
	"github.com/aimd54/penpath/pkg/logger"
)

// Limits for Top.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ProfileRepository interface for profile operations.
type ProfileRepository interface {
	TopByXP(ctx context.Context, limit int) ([]models.Profile, error)
	ListAll(ctx context.Context) ([]models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// SubmissionRepository interface for submission statistics.
type SubmissionRepository interface {
	StatsForUser(ctx context.Context, userID string) (*repository.SubmissionStats, error)
}

// LevelSource provides the Level Table.
type LevelSource interface {
	Levels(ctx context.Context) ([]models.Level, error)
}

// Entry represents a single entry in a leaderboard.
type Entry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"user_id"`
	FullName   string `json:"full_name"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	CurrentXP  int    `json:"current_xp"`
	LevelID    uint   `json:"level_id"`
	LevelTitle string `json:"level_title"`
}

// Service handles leaderboard generation and user standings.
type Service struct {
	profileRepo    ProfileRepository
	submissionRepo SubmissionRepository
	levels         LevelSource
	log            *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
func NewService(
	profileRepo *repository.ProfileRepository,
	submissionRepo *repository.SubmissionRepository,
	levels LevelSource,
	log *logger.Logger,
) *Service {
	return &Service{
		profileRepo:    profileRepo,
		submissionRepo: submissionRepo,
		levels:         levels,
		log:            log,
	}
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	profileRepo ProfileRepository,
	submissionRepo SubmissionRepository,
	levels LevelSource,
	log *logger.Logger,
) *Service {
	return &Service{
		profileRepo:    profileRepo,
		submissionRepo: submissionRepo,
		levels:         levels,
		log:            log,
	}
}

// Top returns up to limit writers ordered by XP, then level, then name.
// A zero limit means DefaultLimit.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return nil, apperrors.Newf(apperrors.KindValidation, "limit must be between 1 and %d", MaxLimit)
	}

	profiles, err := s.profileRepo.TopByXP(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load leaderboard")
	}

	return s.buildEntries(ctx, profiles), nil
}

// buildEntries ranks profiles in the order given, resolving level titles.
func (s *Service) buildEntries(ctx context.Context, profiles []models.Profile) []Entry {
	var levels []models.Level
	if s.levels != nil {
		var err error
		levels, err = s.levels.Levels(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to load levels for leaderboard titles")
		}
	}

	entries := make([]Entry, 0, len(profiles))
	for i, p := range profiles {
		entry := Entry{
			Rank:      i + 1,
			UserID:    p.ID,
			FullName:  p.FullName,
			AvatarURL: p.AvatarURL,
			CurrentXP: p.CurrentXP,
			LevelID:   p.LevelID,
		}
		if p.Level != nil {
			entry.LevelTitle = p.Level.Title
		} else if level, ok := progression.LevelByID(levels, p.LevelID); ok {
			entry.LevelTitle = level.Title
		}
		entries = append(entries, entry)
	}
	return entries
}

// sortProfiles orders profiles the way TopByXP does.
func sortProfiles(profiles []models.Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		a, b := profiles[i], profiles[j]
		if a.CurrentXP != b.CurrentXP {
			return a.CurrentXP > b.CurrentXP
		}
		if a.LevelID != b.LevelID {
			return a.LevelID > b.LevelID
		}
		return a.FullName < b.FullName
	})
}
