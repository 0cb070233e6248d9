// Package submissions scores responses and maintains the submission history.
package submissions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/auth"
	"github.com/aimd54/penpath/internal/challenges"
	"github.com/aimd54/penpath/internal/mattermost"
	"github.com/aimd54/penpath/internal/metrics"
	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/progression"
	"github.com/aimd54/penpath/internal/repository"
	"github.com/aimd54/penpath/internal/service/coach"
	"github.com/aimd54/penpath/pkg/logger"
)

// ChallengeRepository interface for challenge lookups.
type ChallengeRepository interface {
	GetByID(ctx context.Context, id string) (*models.Challenge, error)
	GetAssignment(ctx context.Context, userID, challengeID string) (*models.UserChallenge, error)
}

// SubmissionRepository interface for submission reads.
type SubmissionRepository interface {
	ListByUser(ctx context.Context, userID string, challengeType models.ChallengeType) ([]models.Submission, error)
	GetForUser(ctx context.Context, userID, id string) (*models.Submission, error)
}

// ProfileRepository interface for profile operations.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// ProgressStore applies XP changes atomically with their submissions.
type ProgressStore interface {
	RecordScoredSubmission(ctx context.Context, submission *models.Submission, levels []models.Level) (progression.Award, error)
	DeleteSubmission(ctx context.Context, userID, submissionID string, levels []models.Level, policy progression.DemotionPolicy) (*models.Submission, progression.Adjustment, error)
}

// Scorer evaluates a response.
type Scorer interface {
	Score(ctx context.Context, challenge *models.Challenge, response string, lang language.Tag) (*coach.Evaluation, error)
}

// LevelSource provides the Level Table.
type LevelSource interface {
	Levels(ctx context.Context) ([]models.Level, error)
}

// Notifier announces promotions.
type Notifier interface {
	SendLevelUp(ctx context.Context, up mattermost.LevelUp) error
}

// Result is a stored, scored submission with the XP it awarded.
type Result struct {
	Submission *models.Submission `json:"submission"`
	Award      progression.Award  `json:"award"`
	LeveledUp  bool               `json:"leveled_up"`
	NewLevel   *models.Level      `json:"new_level,omitempty"`
}

// DeleteResult describes a deleted submission and the XP taken back.
type DeleteResult struct {
	Submission *models.Submission     `json:"submission"`
	Adjustment progression.Adjustment `json:"adjustment"`
	Demoted    bool                   `json:"demoted"`
}

// Service handles submission scoring and history.
type Service struct {
	challengeRepo  ChallengeRepository
	submissionRepo SubmissionRepository
	profileRepo    ProfileRepository
	store          ProgressStore
	scorer         Scorer
	levels         LevelSource
	notifier       Notifier
	policy         progression.DemotionPolicy
	log            *logger.Logger
	wg             sync.WaitGroup
}

// Deps groups the collaborators of the submission service.
type Deps struct {
	Challenges  ChallengeRepository
	Submissions SubmissionRepository
	Profiles    ProfileRepository
	Store       ProgressStore
	Scorer      Scorer
	Levels      LevelSource
	Notifier    Notifier // optional
}

// NewService creates a new submission service with concrete repository types.
func NewService(
	challengeRepo *repository.ChallengeRepository,
	submissionRepo *repository.SubmissionRepository,
	profileRepo *repository.ProfileRepository,
	store *repository.ProgressStore,
	scorer Scorer,
	levels LevelSource,
	notifier *mattermost.Client,
	policy progression.DemotionPolicy,
	log *logger.Logger,
) *Service {
	deps := Deps{
		Challenges:  challengeRepo,
		Submissions: submissionRepo,
		Profiles:    profileRepo,
		Store:       store,
		Scorer:      scorer,
		Levels:      levels,
	}
	if notifier != nil && notifier.Enabled() {
		deps.Notifier = notifier
	}
	return NewServiceWithInterfaces(deps, policy, log)
}

// NewServiceWithInterfaces creates a new submission service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(deps Deps, policy progression.DemotionPolicy, log *logger.Logger) *Service {
	if policy == "" {
		policy = progression.DemotionRecompute
	}
	return &Service{
		challengeRepo:  deps.Challenges,
		submissionRepo: deps.Submissions,
		profileRepo:    deps.Profiles,
		store:          deps.Store,
		scorer:         deps.Scorer,
		levels:         deps.Levels,
		notifier:       deps.Notifier,
		policy:         policy,
		log:            log,
	}
}

// Submit scores response against an active challenge and records the result.
// Nothing is stored when scoring fails.
func (s *Service) Submit(ctx context.Context, session *auth.Session, challengeID, response string) (*Result, error) {
	if err := challenges.ValidateResponse(response, 0); err != nil {
		return nil, err
	}

	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, notFoundOr(err, "challenge not found", "failed to load challenge")
	}
	if err := challenges.ValidateResponse(response, challenge.WordLimit); err != nil {
		return nil, err
	}

	assignment, err := s.challengeRepo.GetAssignment(ctx, session.UserID, challengeID)
	if err != nil {
		return nil, notFoundOr(err, "challenge not found", "failed to load challenge assignment")
	}
	if !assignment.CanTransitionTo(models.ChallengeStatusCompleted) {
		metrics.RecordSubmissionScored(string(challenge.Type), "already_completed")
		return nil, apperrors.New(apperrors.KindAlreadyCompleted, "challenge already completed")
	}

	eval, err := s.scorer.Score(ctx, challenge, response, session.Language)
	if err != nil {
		metrics.RecordSubmissionScored(string(challenge.Type), "scoring_failed")
		return nil, err
	}

	levels, err := s.levels.Levels(ctx)
	if err != nil {
		return nil, err
	}

	submission := &models.Submission{
		ID:             uuid.NewString(),
		UserID:         session.UserID,
		ChallengeID:    challenge.ID,
		Response:       response,
		Score:          eval.Score,
		Feedback:       eval.Feedback,
		ImprovementTip: eval.Improvement,
		XPGained:       eval.XPGained,
	}

	award, err := s.store.RecordScoredSubmission(ctx, submission, levels)
	if err != nil {
		if errors.Is(err, repository.ErrChallengeNotActive) {
			metrics.RecordSubmissionScored(string(challenge.Type), "already_completed")
			return nil, apperrors.Wrap(apperrors.KindAlreadyCompleted, err, "challenge already completed")
		}
		metrics.RecordSubmissionScored(string(challenge.Type), "error")
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to record submission")
	}
	submission.Challenge = challenge

	metrics.RecordSubmissionScored(string(challenge.Type), "success")
	metrics.ObserveSubmissionScore(string(challenge.Type), eval.Score)
	metrics.RecordXPAwarded(string(challenge.Type), award.Amount)

	result := &Result{
		Submission: submission,
		Award:      award,
		LeveledUp:  award.LeveledUp(),
	}

	logEvent := s.log.Info().
		Str("user_id", session.UserID).
		Str("challenge_id", challenge.ID).
		Int("score", eval.Score).
		Int("xp_gained", award.Amount).
		Int("total_xp", award.NewXP)

	if award.LeveledUp() {
		if level, ok := progression.LevelByID(levels, award.NewLevelID); ok {
			result.NewLevel = level
		}
		metrics.RecordLevelUp(award.NewLevelID)
		logEvent = logEvent.Uint("new_level_id", award.NewLevelID).Int("levels_gained", award.LevelsGained())
		s.announce(session.UserID, challenge.Title, award, result.NewLevel)
	}
	logEvent.Msg("Submission scored")

	return result, nil
}

// announce posts the level-up notification in the background.
func (s *Service) announce(userID, challengeTitle string, award progression.Award, level *models.Level) {
	if s.notifier == nil || level == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		up := mattermost.LevelUp{
			LevelID:    level.ID,
			LevelTitle: level.Title,
			TotalXP:    award.NewXP,
			XPGained:   award.Amount,
			Challenge:  challengeTitle,
		}
		if s.profileRepo != nil {
			if profile, err := s.profileRepo.GetByID(ctx, userID); err == nil {
				up.FullName = profile.FullName
			}
		}

		if err := s.notifier.SendLevelUp(ctx, up); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to send level-up notification")
		}
	}()
}

// History returns the user's submissions newest first. tab filters by challenge type.
func (s *Service) History(ctx context.Context, userID, tab string) ([]models.Submission, error) {
	tab, err := challenges.ParseTab(tab)
	if err != nil {
		return nil, err
	}

	var filter models.ChallengeType
	if tab != challenges.TabAll {
		filter = models.ChallengeType(tab)
	}

	submissions, err := s.submissionRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to list submissions")
	}
	return submissions, nil
}

// Get returns one of the user's submissions.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Submission, error) {
	submission, err := s.submissionRepo.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, notFoundOr(err, "submission not found", "failed to load submission")
	}
	return submission, nil
}

// Delete removes a submission and takes back its XP under the configured demotion policy.
func (s *Service) Delete(ctx context.Context, userID, id string) (*DeleteResult, error) {
	levels, err := s.levels.Levels(ctx)
	if err != nil {
		return nil, err
	}

	deleted, adjustment, err := s.store.DeleteSubmission(ctx, userID, id, levels, s.policy)
	if err != nil {
		return nil, notFoundOr(err, "submission not found", "failed to delete submission")
	}

	metrics.RecordSubmissionDeleted()
	s.log.Info().
		Str("user_id", userID).
		Str("submission_id", id).
		Int("xp_removed", adjustment.Amount).
		Int("total_xp", adjustment.NewXP).
		Bool("demoted", adjustment.Demoted()).
		Str("policy", string(s.policy)).
		Msg("Submission deleted")

	return &DeleteResult{
		Submission: deleted,
		Adjustment: adjustment,
		Demoted:    adjustment.Demoted(),
	}, nil
}

// Close waits for pending notifications.
func (s *Service) Close() {
	s.wg.Wait()
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, err, notFound)
	}
	return apperrors.Wrap(apperrors.KindInternal, err, internal)
}
