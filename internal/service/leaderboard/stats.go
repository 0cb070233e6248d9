package leaderboard

import (
	"context"
	"errors"
	"math"

	"gorm.io/gorm"

	"github.com/aimd54/penpath/internal/apperrors"
)

// Standing is a user's position on the leaderboard with their submission stats.
type Standing struct {
	Entry
	TotalWriters     int   `json:"total_writers"`
	TotalSubmissions int64 `json:"total_submissions"`
	AverageScore     int   `json:"average_score"`
}

// UserStanding returns the user's rank among all writers.
func (s *Service) UserStanding(ctx context.Context, userID string) (*Standing, error) {
	if _, err := s.profileRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, err, "profile not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load profile")
	}

	profiles, err := s.profileRepo.ListAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load profiles")
	}
	sortProfiles(profiles)

	entries := s.buildEntries(ctx, profiles)
	standing := &Standing{TotalWriters: len(entries)}
	found := false
	for _, e := range entries {
		if e.UserID == userID {
			standing.Entry = e
			found = true
			break
		}
	}
	if !found {
		return nil, apperrors.New(apperrors.KindNotFound, "user not found in leaderboard")
	}

	stats, err := s.submissionRepo.StatsForUser(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to get submission stats")
	} else {
		standing.TotalSubmissions = stats.TotalSubmissions
		standing.AverageScore = int(math.Round(stats.AverageScore))
	}

	return standing, nil
}
