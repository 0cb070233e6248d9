// Package progression implements the XP and leveling rules of the career ladder.
//
// Every function here is pure: callers load the Level Table and the profile and
// persist the results themselves.
package progression

import (
	"errors"
	"fmt"
	"math"

	"github.com/aimd54/penpath/internal/models"
)

// ErrNonPositiveAward is returned when an award amount is zero or negative.
var ErrNonPositiveAward = errors.New("xp award must be positive")

// Award describes the effect of adding XP to a profile.
type Award struct {
	Amount          int  `json:"amount"`
	PreviousXP      int  `json:"previous_xp"`
	NewXP           int  `json:"new_xp"`
	PreviousLevelID uint `json:"previous_level_id"`
	NewLevelID      uint `json:"new_level_id"`
}

// LeveledUp reports whether the award moved the profile to a higher level.
func (a Award) LeveledUp() bool {
	return a.NewLevelID > a.PreviousLevelID
}

// LevelsGained returns how many tiers the award crossed.
func (a Award) LevelsGained() int {
	if !a.LeveledUp() {
		return 0
	}
	return int(a.NewLevelID - a.PreviousLevelID)
}

// ComputeLevel returns the highest level whose threshold is covered by xp,
// never lower than currentLevelID. Levels must be sorted by ascending id.
//
// Negative xp is a caller bug and panics.
func ComputeLevel(levels []models.Level, xp int, currentLevelID uint) uint {
	if xp < 0 {
		panic(fmt.Sprintf("progression: negative xp %d", xp))
	}

	newLevelID := currentLevelID
	for _, level := range levels {
		if level.RequiredXP <= xp && level.ID > newLevelID {
			newLevelID = level.ID
		}
	}
	return newLevelID
}

// LevelForXP evaluates xp against the table from scratch, ignoring any level
// the profile currently holds.
func LevelForXP(levels []models.Level, xp int) uint {
	if len(levels) == 0 {
		return models.FirstLevelID
	}
	return ComputeLevel(levels, xp, levels[0].ID)
}

// AwardXP computes the profile's XP and level after adding amount.
func AwardXP(levels []models.Level, profile *models.Profile, amount int) (Award, error) {
	if amount <= 0 {
		return Award{}, fmt.Errorf("%w: got %d", ErrNonPositiveAward, amount)
	}
	if profile.CurrentXP > math.MaxInt-amount {
		return Award{}, fmt.Errorf("xp award of %d overflows current total %d", amount, profile.CurrentXP)
	}

	newXP := profile.CurrentXP + amount
	return Award{
		Amount:          amount,
		PreviousXP:      profile.CurrentXP,
		NewXP:           newXP,
		PreviousLevelID: profile.LevelID,
		NewLevelID:      ComputeLevel(levels, newXP, profile.LevelID),
	}, nil
}

// LevelByID returns the level with the given id.
func LevelByID(levels []models.Level, id uint) (*models.Level, bool) {
	for i := range levels {
		if levels[i].ID == id {
			return &levels[i], true
		}
	}
	return nil, false
}

// NextLevel returns the level with the smallest id above currentLevelID, or nil at max level.
func NextLevel(levels []models.Level, currentLevelID uint) *models.Level {
	var next *models.Level
	for i := range levels {
		if levels[i].ID <= currentLevelID {
			continue
		}
		if next == nil || levels[i].ID < next.ID {
			next = &levels[i]
		}
	}
	return next
}

// ProgressPercent returns how far currentXP sits between the current level and the next, 0..100.
// At max level (next == nil) it returns 100.
func ProgressPercent(currentXP int, current models.Level, next *models.Level) int {
	if next == nil {
		return 100
	}

	span := next.RequiredXP - current.RequiredXP
	if span <= 0 {
		return 100
	}

	percent := int(math.Floor(float64(currentXP-current.RequiredXP) / float64(span) * 100))
	if percent > 100 {
		return 100
	}
	if percent < 0 {
		return 0
	}
	return percent
}

// XPToNextLevel returns the XP still missing to reach next, 0 at max level.
func XPToNextLevel(currentXP int, next *models.Level) int {
	if next == nil || currentXP >= next.RequiredXP {
		return 0
	}
	return next.RequiredXP - currentXP
}

// ValidateTable checks the Level Table invariants: sorted ids starting at a
// zero threshold, with strictly increasing required XP.
func ValidateTable(levels []models.Level) error {
	if len(levels) == 0 {
		return errors.New("level table is empty")
	}
	if levels[0].RequiredXP != 0 {
		return fmt.Errorf("first level %d must require 0 xp, requires %d", levels[0].ID, levels[0].RequiredXP)
	}
	for i := 1; i < len(levels); i++ {
		prev, cur := levels[i-1], levels[i]
		if cur.ID <= prev.ID {
			return fmt.Errorf("level ids must be strictly increasing: %d after %d", cur.ID, prev.ID)
		}
		if cur.RequiredXP <= prev.RequiredXP {
			return fmt.Errorf("level %d requires %d xp, not above level %d (%d xp)", cur.ID, cur.RequiredXP, prev.ID, prev.RequiredXP)
		}
	}
	return nil
}
