package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimd54/penpath/internal/cache"
	"github.com/aimd54/penpath/internal/levels"
	"github.com/aimd54/penpath/internal/repository"
	"github.com/aimd54/penpath/internal/service/progress"
	"github.com/aimd54/penpath/pkg/logger"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		return repository.RunMigrations(&cfg.Database.Postgres, log)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rollbackSteps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		return repository.RollbackMigrations(&cfg.Database.Postgres, rollbackSteps, log)
	},
}

var seedLevelsCmd = &cobra.Command{
	Use:   "seed-levels",
	Short: "Load the Level Table into the database",
	Long: `Upserts the Level Table from progression.levels_file, or the built-in
career ladder when no file is configured, and drops the cached copy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := repository.NewDB(&cfg.Database.Postgres, log)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		var c cache.Cache
		if redisCache, err := cache.NewRedisCache(&cfg.Database.Redis); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, cached levels will expire on their own")
		} else {
			defer func() { _ = redisCache.Close() }()
			c = redisCache
		}

		levelRepo := repository.NewLevelRepository(db)
		progressService := progress.NewService(levelRepo, nil, nil, c, cfg.Cache.LevelsTTL, log)
		return seedLevels(cmd.Context(), cfg.Progression.LevelsFile, levelRepo, progressService, log)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateDownCmd)
}

// seedLevels upserts the configured Level Table and invalidates the cached copy.
func seedLevels(ctx context.Context, path string, repo *repository.LevelRepository, progressService *progress.Service, log *logger.Logger) error {
	table, err := levels.Load(path)
	if err != nil {
		return err
	}
	if err := repo.Upsert(ctx, table); err != nil {
		return err
	}
	if err := progressService.InvalidateLevels(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate cached levels")
	}

	source := path
	if source == "" {
		source = "built-in"
	}
	log.Info().
		Int("levels", len(table)).
		Str("source", source).
		Msg("Level table seeded")
	return nil
}
