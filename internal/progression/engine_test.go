package progression

import (
	"errors"
	"testing"

	"github.com/aimd54/penpath/internal/models"
)

func careerLadder() []models.Level {
	return []models.Level{
		{ID: 1, Title: "Intern", RequiredXP: 0},
		{ID: 2, Title: "Trainee", RequiredXP: 1000},
		{ID: 3, Title: "Junior Associate", RequiredXP: 2500},
		{ID: 4, Title: "Associate", RequiredXP: 5000},
		{ID: 5, Title: "Senior Associate", RequiredXP: 10000},
		{ID: 6, Title: "Team Lead", RequiredXP: 20000},
		{ID: 7, Title: "Manager", RequiredXP: 35000},
		{ID: 8, Title: "Director", RequiredXP: 50000},
		{ID: 9, Title: "VP", RequiredXP: 75000},
		{ID: 10, Title: "CMO", RequiredXP: 100000},
	}
}

func TestComputeLevel(t *testing.T) {
	levels := careerLadder()

	tests := []struct {
		name    string
		xp      int
		current uint
		want    uint
	}{
		{"zero xp stays intern", 0, 1, 1},
		{"just below threshold", 999, 1, 1},
		{"exact threshold", 1000, 1, 2},
		{"multi level jump", 5200, 1, 4},
		{"never demotes", 0, 5, 5},
		{"max level", 250000, 10, 10},
		{"past max threshold from low level", 100000, 2, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLevel(levels, tt.xp, tt.current)
			if got != tt.want {
				t.Errorf("ComputeLevel(%d, %d) = %d, want %d", tt.xp, tt.current, got, tt.want)
			}
		})
	}
}

func TestComputeLevel_EmptyTable(t *testing.T) {
	if got := ComputeLevel(nil, 5000, 3); got != 3 {
		t.Errorf("Expected current level 3 on empty table, got %d", got)
	}
}

func TestComputeLevel_NegativeXPPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for negative xp")
		}
	}()
	ComputeLevel(careerLadder(), -1, 1)
}

func TestComputeLevel_MonotonicUnderAwards(t *testing.T) {
	levels := careerLadder()
	profile := &models.Profile{CurrentXP: 0, LevelID: 1}

	amounts := []int{50, 200, 120, 999, 75, 5000, 60, 15000, 200, 40000, 80000}
	for _, amount := range amounts {
		award, err := AwardXP(levels, profile, amount)
		if err != nil {
			t.Fatalf("AwardXP(%d) failed: %v", amount, err)
		}
		if award.NewLevelID < award.PreviousLevelID {
			t.Fatalf("Level decreased from %d to %d after +%d", award.PreviousLevelID, award.NewLevelID, amount)
		}
		profile.CurrentXP = award.NewXP
		profile.LevelID = award.NewLevelID
	}

	if profile.LevelID != 10 {
		t.Errorf("Expected to reach level 10, got %d", profile.LevelID)
	}
}

func TestAwardXP_MultiLevelJump(t *testing.T) {
	levels := []models.Level{
		{ID: 1, RequiredXP: 0},
		{ID: 2, RequiredXP: 1000},
		{ID: 3, RequiredXP: 2500},
	}
	profile := &models.Profile{CurrentXP: 0, LevelID: 1}

	award, err := AwardXP(levels, profile, 3000)
	if err != nil {
		t.Fatalf("AwardXP failed: %v", err)
	}

	if award.NewXP != 3000 {
		t.Errorf("Expected 3000 xp, got %d", award.NewXP)
	}
	if award.NewLevelID != 3 {
		t.Errorf("Expected level 3, got %d", award.NewLevelID)
	}
	if !award.LeveledUp() {
		t.Error("Expected LeveledUp to be true")
	}
	if award.LevelsGained() != 2 {
		t.Errorf("Expected 2 levels gained, got %d", award.LevelsGained())
	}
}

func TestAwardXP_RejectsNonPositive(t *testing.T) {
	profile := &models.Profile{CurrentXP: 100, LevelID: 1}

	for _, amount := range []int{0, -50} {
		_, err := AwardXP(careerLadder(), profile, amount)
		if !errors.Is(err, ErrNonPositiveAward) {
			t.Errorf("AwardXP(%d): expected ErrNonPositiveAward, got %v", amount, err)
		}
	}
	if profile.CurrentXP != 100 {
		t.Errorf("Profile must not be mutated, got %d xp", profile.CurrentXP)
	}
}

func TestAwardXP_MaxLevelClamp(t *testing.T) {
	levels := careerLadder()
	profile := &models.Profile{CurrentXP: 120000, LevelID: 10}

	award, err := AwardXP(levels, profile, 200)
	if err != nil {
		t.Fatalf("AwardXP failed: %v", err)
	}
	if award.NewLevelID != 10 {
		t.Errorf("Expected level to stay 10, got %d", award.NewLevelID)
	}
	if award.LeveledUp() {
		t.Error("Expected no level up at max level")
	}

	current, _ := LevelByID(levels, award.NewLevelID)
	next := NextLevel(levels, award.NewLevelID)
	if next != nil {
		t.Errorf("Expected no next level, got %d", next.ID)
	}
	if pct := ProgressPercent(award.NewXP, *current, next); pct != 100 {
		t.Errorf("Expected progress 100 at max level, got %d", pct)
	}
	if remaining := XPToNextLevel(award.NewXP, next); remaining != 0 {
		t.Errorf("Expected 0 xp to next level, got %d", remaining)
	}
}

func TestProgressPercent(t *testing.T) {
	current := models.Level{ID: 2, RequiredXP: 1000}
	next := &models.Level{ID: 3, RequiredXP: 2500}

	tests := []struct {
		name string
		xp   int
		want int
	}{
		{"at current threshold", 1000, 0},
		{"midpoint", 1750, 50},
		{"floors fractions", 1014, 0},
		{"one below next", 2499, 99},
		{"beyond next clamps", 4000, 100},
		{"below current clamps", 500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressPercent(tt.xp, current, next); got != tt.want {
				t.Errorf("ProgressPercent(%d) = %d, want %d", tt.xp, got, tt.want)
			}
		})
	}
}

func TestProgressPercent_EqualThresholds(t *testing.T) {
	current := models.Level{ID: 1, RequiredXP: 0}
	next := &models.Level{ID: 2, RequiredXP: 0}

	if got := ProgressPercent(0, current, next); got != 100 {
		t.Errorf("Expected 100 for zero-width span, got %d", got)
	}
}

func TestXPToNextLevel(t *testing.T) {
	next := &models.Level{ID: 3, RequiredXP: 2500}

	if got := XPToNextLevel(1750, next); got != 750 {
		t.Errorf("Expected 750, got %d", got)
	}
	if got := XPToNextLevel(3000, next); got != 0 {
		t.Errorf("Expected 0 past the threshold, got %d", got)
	}
}

func TestNextLevel(t *testing.T) {
	levels := careerLadder()

	next := NextLevel(levels, 4)
	if next == nil || next.ID != 5 {
		t.Fatalf("Expected level 5 after 4, got %v", next)
	}
	if next.Title != "Senior Associate" {
		t.Errorf("Expected Senior Associate, got %s", next.Title)
	}

	if _, ok := LevelByID(levels, 42); ok {
		t.Error("Expected level 42 to be missing")
	}
}

func TestValidateTable(t *testing.T) {
	if err := ValidateTable(careerLadder()); err != nil {
		t.Errorf("Expected career ladder to be valid: %v", err)
	}

	invalid := map[string][]models.Level{
		"empty":            nil,
		"nonzero start":    {{ID: 1, RequiredXP: 10}},
		"unsorted ids":     {{ID: 2, RequiredXP: 0}, {ID: 1, RequiredXP: 100}},
		"flat threshold":   {{ID: 1, RequiredXP: 0}, {ID: 2, RequiredXP: 0}},
		"falling required": {{ID: 1, RequiredXP: 0}, {ID: 2, RequiredXP: 500}, {ID: 3, RequiredXP: 400}},
	}
	for name, levels := range invalid {
		if err := ValidateTable(levels); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
