// Package scheduler runs the daily challenge supply sweep.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/aimd54/penpath/internal/config"
	"github.com/aimd54/penpath/internal/mattermost"
	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/repository"
	"github.com/aimd54/penpath/internal/service/challenges"
	"github.com/aimd54/penpath/pkg/logger"
)

// JobSupplySweep is the metrics label of the sweep job.
const JobSupplySweep = "supply_sweep"

// Concurrent replenishments per sweep.
const sweepConcurrency = 4

// ProfileRepository interface for listing writers.
type ProfileRepository interface {
	ListAll(ctx context.Context) ([]models.Profile, error)
}

// ChallengeCounter reports active challenge counts per writer and category.
type ChallengeCounter interface {
	CountActiveByUser(ctx context.Context) (map[string]map[models.ChallengeType]int, error)
}

// Replenisher tops up a writer's challenge pool when it is under quota.
type Replenisher interface {
	ReplenishIfNeeded(ctx context.Context, userID string, lang language.Tag, trigger string) (int, error)
	Quota() int
}

// Notifier posts sweep summaries.
type Notifier interface {
	SendSweepSummary(ctx context.Context, s mattermost.SweepSummary) error
}

// Service handles scheduled jobs.
type Service struct {
	config      *config.SchedulerConfig
	lang        language.Tag
	profileRepo ProfileRepository
	counter     ChallengeCounter
	replenisher Replenisher
	notifier    Notifier
	log         *logger.Logger
	cron        *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	profileRepo *repository.ProfileRepository,
	challengeRepo *repository.ChallengeRepository,
	challengeService *challenges.Service,
	mattermostClient *mattermost.Client,
	log *logger.Logger,
) *Service {
	var notifier Notifier
	if mattermostClient != nil && mattermostClient.Enabled() {
		notifier = mattermostClient
	}
	return NewServiceWithInterfaces(&cfg.Scheduler, language.Make(cfg.Server.DefaultLanguage), profileRepo, challengeRepo, challengeService, notifier, log)
}

// NewServiceWithInterfaces creates a new scheduler service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	cfg *config.SchedulerConfig,
	lang language.Tag,
	profileRepo ProfileRepository,
	counter ChallengeCounter,
	replenisher Replenisher,
	notifier Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		config:      cfg,
		lang:        lang,
		profileRepo: profileRepo,
		counter:     counter,
		replenisher: replenisher,
		notifier:    notifier,
		log:         log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	cronExpr, err := buildCronExpression(s.config.SupplySweepTime)
	if err != nil {
		return fmt.Errorf("failed to build cron expression: %w", err)
	}

	_, err = s.cron.AddFunc(cronExpr, func() {
		s.RunSupplySweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register supply sweep job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", cronExpr).
		Str("timezone", s.config.Timezone).
		Str("time", s.config.SupplySweepTime).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running sweep.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression turns an HH:MM time into a daily cron expression.
func buildCronExpression(at string) (string, error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", at)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	// Format: "minute hour day month weekday"
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
