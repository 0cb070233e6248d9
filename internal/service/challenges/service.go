// Package challenges serves a user's active challenge pool and keeps it supplied.
package challenges

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/auth"
	"github.com/aimd54/penpath/internal/cache"
	supply "github.com/aimd54/penpath/internal/challenges"
	"github.com/aimd54/penpath/internal/metrics"
	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/repository"
	"github.com/aimd54/penpath/pkg/logger"
)

// Refill triggers, used as metric labels.
const (
	TriggerBackground = "background"
	TriggerManual     = "manual"
	TriggerScheduler  = "scheduler"
)

const (
	defaultLockTTL = 2 * time.Minute
	refillTimeout  = 90 * time.Second
)

// ErrRefillInProgress is returned when another generation for the same user holds the lock.
var ErrRefillInProgress = apperrors.New(apperrors.KindConflict, "challenge generation already in progress")

// ChallengeRepository interface for challenge operations.
type ChallengeRepository interface {
	CreateForUser(ctx context.Context, userID string, challenges []models.Challenge) error
	GetByID(ctx context.Context, id string) (*models.Challenge, error)
	ListActiveForUser(ctx context.Context, userID string) ([]models.Challenge, error)
	GetAssignment(ctx context.Context, userID, challengeID string) (*models.UserChallenge, error)
}

// ProfileRepository interface for profile operations.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// Generator produces new challenges for a level.
type Generator interface {
	GenerateChallenges(ctx context.Context, levelID uint, lang language.Tag) ([]models.Challenge, error)
}

// ActiveView is the challenge list shown for a tab.
type ActiveView struct {
	Tab             string                       `json:"tab"`
	Challenges      []models.Challenge           `json:"challenges"`
	Counts          map[models.ChallengeType]int `json:"counts"`
	RefillTriggered bool                         `json:"refill_triggered"`
}

// Detail is a challenge with the caller's assignment status.
type Detail struct {
	Challenge *models.Challenge      `json:"challenge"`
	Status    models.ChallengeStatus `json:"status"`
}

// Service handles the active challenge pool.
type Service struct {
	challengeRepo ChallengeRepository
	profileRepo   ProfileRepository
	generator     Generator
	cache         cache.Cache
	quota         int
	lockTTL       time.Duration
	log           *logger.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService creates a new challenge service with concrete repository types.
func NewService(
	challengeRepo *repository.ChallengeRepository,
	profileRepo *repository.ProfileRepository,
	generator Generator,
	c cache.Cache,
	quota int,
	lockTTL time.Duration,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(challengeRepo, profileRepo, generator, c, quota, lockTTL, log)
}

// NewServiceWithInterfaces creates a new challenge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	challengeRepo ChallengeRepository,
	profileRepo ProfileRepository,
	generator Generator,
	c cache.Cache,
	quota int,
	lockTTL time.Duration,
	log *logger.Logger,
) *Service {
	if quota <= 0 {
		quota = supply.DefaultQuotaPerCategory
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		challengeRepo: challengeRepo,
		profileRepo:   profileRepo,
		generator:     generator,
		cache:         c,
		quota:         quota,
		lockTTL:       lockTTL,
		log:           log,
		ctx:           ctx,
		cancel:        cancel,
		inflight:      make(map[string]struct{}),
	}
}

// Quota returns the per-category quota.
func (s *Service) Quota() int {
	return s.quota
}

// ListActive returns the active challenges for tab. When the pool is under
// quota a background refill is started; the current view is not re-fetched.
func (s *Service) ListActive(ctx context.Context, session *auth.Session, tab string) (*ActiveView, error) {
	tab, err := supply.ParseTab(tab)
	if err != nil {
		return nil, err
	}

	pool, err := s.challengeRepo.ListActiveForUser(ctx, session.UserID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to list active challenges")
	}

	view := &ActiveView{
		Tab:        tab,
		Challenges: supply.SelectForView(pool, tab, s.quota),
		Counts:     supply.CountByCategory(pool),
	}
	if supply.NeedsReplenishment(pool, s.quota) {
		view.RefillTriggered = s.triggerRefill(session.UserID, session.Language)
	}
	return view, nil
}

// triggerRefill starts a detached refill unless one is already running in this process.
func (s *Service) triggerRefill(userID string, lang language.Tag) bool {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	if _, busy := s.inflight[userID]; busy {
		s.mu.Unlock()
		return false
	}
	s.inflight[userID] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, userID)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(s.ctx, refillTimeout)
		defer cancel()

		n, err := s.Replenish(ctx, userID, lang, TriggerBackground)
		if err != nil && !errors.Is(err, ErrRefillInProgress) {
			s.log.Error().Err(err).Str("user_id", userID).Msg("Background challenge refill failed")
			return
		}
		s.log.Debug().Str("user_id", userID).Int("created", n).Msg("Background challenge refill finished")
	}()
	return true
}

// Refresh generates challenges for the caller right away.
func (s *Service) Refresh(ctx context.Context, session *auth.Session) (int, error) {
	return s.Replenish(ctx, session.UserID, session.Language, TriggerManual)
}

// Replenish generates a batch of challenges for the user's current level and
// assigns them as active. It holds the user's refill lock while running.
func (s *Service) Replenish(ctx context.Context, userID string, lang language.Tag, trigger string) (int, error) {
	lock, err := s.acquire(ctx, userID)
	if err != nil {
		metrics.RecordChallengeRefill("skipped")
		return 0, err
	}
	if lock != nil {
		defer func() {
			// The request context may already be done; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			released, err := lock.Release(releaseCtx)
			if err != nil {
				s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to release refill lock")
				return
			}
			if !released {
				s.log.Warn().Str("user_id", userID).Dur("lock_ttl", s.lockTTL).Msg("Refill outlived its lock")
			}
		}()
	}

	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		metrics.RecordChallengeRefill("error")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.Wrap(apperrors.KindNotFound, err, "profile not found")
		}
		return 0, apperrors.Wrap(apperrors.KindInternal, err, "failed to load profile")
	}

	generated, err := s.generator.GenerateChallenges(ctx, profile.LevelID, lang)
	if err != nil {
		metrics.RecordChallengeRefill("error")
		return 0, err
	}

	if err := s.challengeRepo.CreateForUser(ctx, userID, generated); err != nil {
		metrics.RecordChallengeRefill("error")
		return 0, apperrors.Wrap(apperrors.KindInternal, err, "failed to store generated challenges")
	}

	metrics.RecordChallengeRefill("success")
	metrics.RecordChallengesGenerated(trigger, len(generated))
	s.log.Info().
		Str("user_id", userID).
		Uint("level_id", profile.LevelID).
		Str("language", lang.String()).
		Str("trigger", trigger).
		Int("created", len(generated)).
		Msg("Challenges generated")

	return len(generated), nil
}

// acquire takes the user's refill lock. A nil lock with a nil error means the
// cache is unavailable and generation proceeds unguarded.
func (s *Service) acquire(ctx context.Context, userID string) (*cache.Lock, error) {
	if s.cache == nil {
		return nil, nil
	}
	lock, err := cache.TryLock(ctx, s.cache, cache.RefillLockKey(userID), s.lockTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Refill lock unavailable, generating without it")
		return nil, nil
	}
	if lock == nil {
		return nil, ErrRefillInProgress
	}
	return lock, nil
}

// ReplenishIfNeeded replenishes the user's pool only when it is under quota.
func (s *Service) ReplenishIfNeeded(ctx context.Context, userID string, lang language.Tag, trigger string) (int, error) {
	pool, err := s.challengeRepo.ListActiveForUser(ctx, userID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindInternal, err, "failed to list active challenges")
	}
	if !supply.NeedsReplenishment(pool, s.quota) {
		return 0, nil
	}
	return s.Replenish(ctx, userID, lang, trigger)
}

// Get returns a challenge assigned to the user with its status.
// Challenges not assigned to the user are reported as not found.
func (s *Service) Get(ctx context.Context, userID, challengeID string) (*Detail, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, notFoundOr(err, "challenge not found", "failed to load challenge")
	}

	assignment, err := s.challengeRepo.GetAssignment(ctx, userID, challengeID)
	if err != nil {
		return nil, notFoundOr(err, "challenge not found", "failed to load challenge assignment")
	}

	return &Detail{Challenge: challenge, Status: assignment.Status}, nil
}

// Close stops accepting background refills and waits for running ones.
func (s *Service) Close() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, err, notFound)
	}
	return apperrors.Wrap(apperrors.KindInternal, err, internal)
}
