package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	supply "github.com/aimd54/penpath/internal/challenges"
	"github.com/aimd54/penpath/internal/mattermost"
	prommetrics "github.com/aimd54/penpath/internal/metrics"
	"github.com/aimd54/penpath/internal/service/challenges"
)

// RunSupplySweep replenishes every writer whose active pool is under quota
// and reports the outcome. Writers already at quota in every category are
// skipped without loading their pool. A failure for one writer does not stop
// the sweep.
func (s *Service) RunSupplySweep(ctx context.Context) mattermost.SweepSummary {
	start := time.Now()

	defer func() {
		prommetrics.ObserveSchedulerJobDuration(time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun()
	}()

	s.log.Info().Msg("Running supply sweep job")

	profiles, err := s.profileRepo.ListAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list profiles for supply sweep")
		prommetrics.RecordSchedulerJobRun(JobSupplySweep, "error")
		return mattermost.SweepSummary{Duration: time.Since(start)}
	}

	summary := mattermost.SweepSummary{Profiles: len(profiles)}
	var mu sync.Mutex

	counts, err := s.counter.CountActiveByUser(ctx)
	if err != nil {
		// Without counts every writer's pool is checked individually.
		s.log.Warn().Err(err).Msg("Failed to count active challenges, checking every writer")
	}

	skipped := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, p := range profiles {
		userID := p.ID
		if counts != nil && len(supply.Deficits(counts[userID], s.replenisher.Quota())) == 0 {
			skipped++
			continue
		}
		g.Go(func() error {
			created, err := s.replenisher.ReplenishIfNeeded(gctx, userID, s.lang, challenges.TriggerScheduler)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, challenges.ErrRefillInProgress):
				s.log.Debug().Str("user_id", userID).Msg("Refill already running, skipping")
			case err != nil:
				summary.Failed++
				s.log.Warn().Err(err).Str("user_id", userID).Msg("Supply sweep failed for user")
			case created > 0:
				summary.Replenished++
				summary.Created += created
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(start)

	status := "success"
	if summary.Failed > 0 {
		status = "partial"
	}
	prommetrics.RecordSchedulerJobRun(JobSupplySweep, status)

	s.log.Info().
		Int("profiles", summary.Profiles).
		Int("skipped_full", skipped).
		Int("replenished", summary.Replenished).
		Int("created", summary.Created).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Supply sweep completed")

	s.notify(ctx, summary)

	return summary
}

func (s *Service) notify(ctx context.Context, summary mattermost.SweepSummary) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendSweepSummary(ctx, summary); err != nil {
		s.log.Error().Err(err).Msg("Failed to send supply sweep summary")
	}
}
