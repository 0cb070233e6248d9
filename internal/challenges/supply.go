// Package challenges holds the challenge supply policy: how many active
// challenges a user should have per category and which ones a view shows.
package challenges

import (
	"fmt"
	"strings"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/models"
)

// DefaultQuotaPerCategory is the number of active challenges kept per category.
const DefaultQuotaPerCategory = 6

// TabAll selects every category.
const TabAll = "all"

// CountByCategory counts challenges per type. Every known type is present in the result.
func CountByCategory(challenges []models.Challenge) map[models.ChallengeType]int {
	counts := make(map[models.ChallengeType]int, len(models.ChallengeTypes))
	for _, t := range models.ChallengeTypes {
		counts[t] = 0
	}
	for _, c := range challenges {
		counts[c.Type]++
	}
	return counts
}

// NeedsReplenishment reports whether any category holds fewer than quota active challenges.
func NeedsReplenishment(active []models.Challenge, quota int) bool {
	return len(Deficits(CountByCategory(active), quota)) > 0
}

// Deficits returns how many challenges each category is missing to reach quota,
// given active counts per category. Categories at or above quota are omitted.
func Deficits(counts map[models.ChallengeType]int, quota int) map[models.ChallengeType]int {
	missing := make(map[models.ChallengeType]int)
	for _, t := range models.ChallengeTypes {
		if counts[t] < quota {
			missing[t] = quota - counts[t]
		}
	}
	return missing
}

// SelectForView picks the challenges shown for tab. The all tab concatenates
// up to quota challenges per category in category order; a category tab
// returns up to quota of that type. Input order is preserved within a category.
func SelectForView(challenges []models.Challenge, tab string, quota int) []models.Challenge {
	if tab == "" || tab == TabAll {
		selected := make([]models.Challenge, 0, quota*len(models.ChallengeTypes))
		for _, t := range models.ChallengeTypes {
			selected = append(selected, takeType(challenges, t, quota)...)
		}
		return selected
	}
	return takeType(challenges, models.ChallengeType(tab), quota)
}

func takeType(challenges []models.Challenge, t models.ChallengeType, limit int) []models.Challenge {
	out := make([]models.Challenge, 0, limit)
	for _, c := range challenges {
		if len(out) >= limit {
			break
		}
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// ParseTab normalizes a view tab. Empty means all.
func ParseTab(s string) (string, error) {
	tab := strings.ToLower(strings.TrimSpace(s))
	if tab == "" || tab == TabAll {
		return TabAll, nil
	}
	if models.ChallengeType(tab).Valid() {
		return tab, nil
	}
	return "", apperrors.New(apperrors.KindValidation, fmt.Sprintf("unknown tab %q", s))
}

// DifficultiesForLevel returns the difficulties generated for a user at levelID.
func DifficultiesForLevel(levelID uint) []models.Difficulty {
	switch {
	case levelID <= 2:
		return []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium}
	case levelID <= 5:
		return []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}
	default:
		return []models.Difficulty{models.DifficultyMedium, models.DifficultyHard}
	}
}
