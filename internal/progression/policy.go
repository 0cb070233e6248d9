package progression

import (
	"fmt"
	"strings"

	"github.com/aimd54/penpath/internal/models"
)

// DemotionPolicy decides what happens to a profile's level when XP is taken away.
type DemotionPolicy string

// DemotionPolicy values.
const (
	// DemotionRecompute re-evaluates the level against the table after the deduction.
	DemotionRecompute DemotionPolicy = "recompute"
	// DemotionSticky keeps the level once earned.
	DemotionSticky DemotionPolicy = "sticky"
)

// ParseDemotionPolicy parses a configured policy name. Empty means DemotionRecompute.
func ParseDemotionPolicy(s string) (DemotionPolicy, error) {
	switch DemotionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DemotionRecompute:
		return DemotionRecompute, nil
	case DemotionSticky:
		return DemotionSticky, nil
	default:
		return "", fmt.Errorf("unknown demotion policy %q (valid: recompute, sticky)", s)
	}
}

// Adjustment describes the effect of removing XP from a profile.
type Adjustment struct {
	Amount          int  `json:"amount"`
	PreviousXP      int  `json:"previous_xp"`
	NewXP           int  `json:"new_xp"`
	PreviousLevelID uint `json:"previous_level_id"`
	NewLevelID      uint `json:"new_level_id"`
}

// Demoted reports whether the adjustment lowered the level.
func (a Adjustment) Demoted() bool {
	return a.NewLevelID < a.PreviousLevelID
}

// DeductXP computes the profile's XP and level after removing amount.
// XP never drops below zero.
func DeductXP(levels []models.Level, profile *models.Profile, amount int, policy DemotionPolicy) Adjustment {
	if amount < 0 {
		amount = 0
	}

	newXP := profile.CurrentXP - amount
	if newXP < 0 {
		newXP = 0
	}

	return Adjustment{
		Amount:          amount,
		PreviousXP:      profile.CurrentXP,
		NewXP:           newXP,
		PreviousLevelID: profile.LevelID,
		NewLevelID:      LevelAfterDeduction(levels, newXP, profile.LevelID, policy),
	}
}

// LevelAfterDeduction returns the level a profile holds at xp after a deduction.
func LevelAfterDeduction(levels []models.Level, xp int, currentLevelID uint, policy DemotionPolicy) uint {
	if policy == DemotionSticky {
		return currentLevelID
	}
	return LevelForXP(levels, xp)
}
