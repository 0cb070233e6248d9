// Package progress serves the Level Table and per-user progression views.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/cache"
	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/progression"
	"github.com/aimd54/penpath/internal/repository"
	"github.com/aimd54/penpath/pkg/logger"
)

// DefaultLevelsTTL is used when no cache TTL is configured.
const DefaultLevelsTTL = time.Hour

// LevelRepository interface for level operations.
type LevelRepository interface {
	List(ctx context.Context) ([]models.Level, error)
}

// ProfileRepository interface for profile operations.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// SubmissionRepository interface for submission statistics.
type SubmissionRepository interface {
	StatsForUser(ctx context.Context, userID string) (*repository.SubmissionStats, error)
}

// Stats summarizes a user's submissions.
type Stats struct {
	TotalSubmissions int64 `json:"total_submissions"`
	TotalXP          int64 `json:"total_xp"`
	AverageScore     int   `json:"average_score"`
}

// Overview is the progress dashboard for one user.
type Overview struct {
	Profile         *models.Profile `json:"profile"`
	CurrentLevel    models.Level    `json:"current_level"`
	NextLevel       *models.Level   `json:"next_level"`
	ProgressPercent int             `json:"progress_percent"`
	XPToNextLevel   int             `json:"xp_to_next_level"`
	Stats           Stats           `json:"stats"`
}

// CareerStep is one tier of the career path.
type CareerStep struct {
	models.Level
	Reached bool `json:"reached"`
	Current bool `json:"current"`
}

// Service handles level lookups and progress views.
type Service struct {
	levelRepo      LevelRepository
	profileRepo    ProfileRepository
	submissionRepo SubmissionRepository
	cache          cache.Cache
	levelsTTL      time.Duration
	log            *logger.Logger
}

// NewService creates a new progress service with concrete repository types.
func NewService(
	levelRepo *repository.LevelRepository,
	profileRepo *repository.ProfileRepository,
	submissionRepo *repository.SubmissionRepository,
	c cache.Cache,
	levelsTTL time.Duration,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(levelRepo, profileRepo, submissionRepo, c, levelsTTL, log)
}

// NewServiceWithInterfaces creates a new progress service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	levelRepo LevelRepository,
	profileRepo ProfileRepository,
	submissionRepo SubmissionRepository,
	c cache.Cache,
	levelsTTL time.Duration,
	log *logger.Logger,
) *Service {
	if levelsTTL <= 0 {
		levelsTTL = DefaultLevelsTTL
	}
	return &Service{
		levelRepo:      levelRepo,
		profileRepo:    profileRepo,
		submissionRepo: submissionRepo,
		cache:          c,
		levelsTTL:      levelsTTL,
		log:            log,
	}
}

// Levels returns the Level Table ordered by id. The table is read through the
// cache; cache failures fall back to the database.
func (s *Service) Levels(ctx context.Context) ([]models.Level, error) {
	if levels, ok := s.cachedLevels(ctx); ok {
		return levels, nil
	}

	levels, err := s.levelRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load levels")
	}
	if len(levels) == 0 {
		return nil, apperrors.New(apperrors.KindInternal, "level table is empty")
	}

	if s.cache != nil {
		data, err := json.Marshal(levels)
		if err == nil {
			err = s.cache.Set(ctx, cache.LevelsKey, data, s.levelsTTL)
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache level table")
		}
	}

	return levels, nil
}

func (s *Service) cachedLevels(ctx context.Context) ([]models.Level, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, cache.LevelsKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("Level cache unavailable, reading from database")
		return nil, false
	}
	if raw == "" {
		return nil, false
	}

	var levels []models.Level
	if err := json.Unmarshal([]byte(raw), &levels); err != nil || len(levels) == 0 {
		s.log.Warn().Err(err).Msg("Discarding unreadable cached level table")
		return nil, false
	}
	return levels, true
}

// InvalidateLevels drops the cached Level Table.
func (s *Service) InvalidateLevels(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Del(ctx, cache.LevelsKey); err != nil {
		return fmt.Errorf("failed to invalidate level cache: %w", err)
	}
	return nil
}

// Overview returns the user's profile, level standing and submission stats.
func (s *Service) Overview(ctx context.Context, userID string) (*Overview, error) {
	var (
		profile *models.Profile
		levels  []models.Level
		stats   *repository.SubmissionStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.getProfile(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		levels, err = s.Levels(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.submissionRepo.StatsForUser(gctx, userID)
		if err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "failed to load submission stats")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	current, ok := progression.LevelByID(levels, profile.LevelID)
	if !ok {
		return nil, apperrors.Newf(apperrors.KindInternal, "profile %s is at unknown level %d", userID, profile.LevelID)
	}
	next := progression.NextLevel(levels, profile.LevelID)

	return &Overview{
		Profile:         profile,
		CurrentLevel:    *current,
		NextLevel:       next,
		ProgressPercent: progression.ProgressPercent(profile.CurrentXP, *current, next),
		XPToNextLevel:   progression.XPToNextLevel(profile.CurrentXP, next),
		Stats: Stats{
			TotalSubmissions: stats.TotalSubmissions,
			TotalXP:          stats.TotalXP,
			AverageScore:     int(math.Round(stats.AverageScore)),
		},
	}, nil
}

// CareerPath lists every tier, flagging the ones the user has reached.
func (s *Service) CareerPath(ctx context.Context, userID string) ([]CareerStep, error) {
	profile, err := s.getProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	levels, err := s.Levels(ctx)
	if err != nil {
		return nil, err
	}

	steps := make([]CareerStep, len(levels))
	for i, level := range levels {
		steps[i] = CareerStep{
			Level:   level,
			Reached: level.ID <= profile.LevelID,
			Current: level.ID == profile.LevelID,
		}
	}
	return steps, nil
}

func (s *Service) getProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, err, "profile not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load profile")
	}
	return profile, nil
}
