package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/aimd54/penpath/internal/api/dashboard"
	"github.com/aimd54/penpath/internal/auth"
	"github.com/aimd54/penpath/internal/cache"
	"github.com/aimd54/penpath/internal/llm"
	"github.com/aimd54/penpath/internal/mattermost"
	"github.com/aimd54/penpath/internal/progression"
	"github.com/aimd54/penpath/internal/repository"
	"github.com/aimd54/penpath/internal/service/challenges"
	"github.com/aimd54/penpath/internal/service/coach"
	"github.com/aimd54/penpath/internal/service/leaderboard"
	"github.com/aimd54/penpath/internal/service/progress"
	"github.com/aimd54/penpath/internal/service/scheduler"
	"github.com/aimd54/penpath/internal/service/submissions"
	"github.com/aimd54/penpath/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Str("llm_provider", cfg.LLM.Provider).
		Msg("Starting penpath")

	// Storage
	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.Postgres.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
	}

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redisCache.Close() }()

	llmClient, err := llm.New(ctx, &cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	policy, err := progression.ParseDemotionPolicy(cfg.Progression.DemotionPolicy)
	if err != nil {
		return err
	}
	defaultLang := language.Make(cfg.Server.DefaultLanguage)

	// Repositories
	levelRepo := repository.NewLevelRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	store := repository.NewProgressStore(db)

	// Services
	progressService := progress.NewService(levelRepo, profileRepo, submissionRepo, redisCache, cfg.Cache.LevelsTTL, log.Component("progress"))
	if err := seedLevels(ctx, cfg.Progression.LevelsFile, levelRepo, progressService, log); err != nil {
		return err
	}

	mattermostClient := mattermost.NewClient(&cfg.Mattermost, log.Component("mattermost"))
	coachService := coach.NewService(llmClient, cfg.Challenges.BatchSize, log.Component("coach"))

	challengeService := challenges.NewService(challengeRepo, profileRepo, coachService, redisCache,
		cfg.Challenges.QuotaPerCategory, cfg.Cache.RefillLockTTL, log.Component("challenges"))
	defer challengeService.Close()

	submissionService := submissions.NewService(challengeRepo, submissionRepo, profileRepo, store,
		coachService, progressService, mattermostClient, policy, log.Component("submissions"))
	defer submissionService.Close()

	leaderboardService := leaderboard.NewService(profileRepo, submissionRepo, progressService, log.Component("leaderboard"))

	issuer := auth.NewTokenIssuer(&cfg.Auth)
	events := auth.NewEvents(log.Component("auth"))
	authService := auth.NewService(accountRepo, issuer, events, log.Component("auth"))

	sessionEvents, unsubscribe := events.Subscribe(64)
	defer unsubscribe()
	go logSessionEvents(sessionEvents, log)

	sched := scheduler.NewService(cfg, profileRepo, challengeRepo, challengeService, mattermostClient, log.Component("scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// HTTP
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := dashboard.NewHandler(authService, progressService, challengeService, submissionService,
		leaderboardService, db, redisCache, defaultLang, log.Component("api"))

	metricsPath := ""
	if cfg.Metrics.Prometheus.Enabled {
		metricsPath = cfg.Metrics.Prometheus.Path
	}
	router := dashboard.NewRouter(handler, dashboard.RouterOptions{Issuer: issuer, MetricsPath: metricsPath}, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}

// logSessionEvents records sign-ups and sign-ins until the subscription closes.
func logSessionEvents(events <-chan auth.Event, log *logger.Logger) {
	for ev := range events {
		log.Info().
			Str("event", string(ev.Type)).
			Str("user_id", ev.UserID).
			Time("at", ev.At).
			Msg("Session event")
	}
}
