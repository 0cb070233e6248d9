package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/penpath/internal/models"
)

func TestParseDemotionPolicy(t *testing.T) {
	policy, err := ParseDemotionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DemotionRecompute, policy)

	policy, err = ParseDemotionPolicy(" Sticky ")
	require.NoError(t, err)
	assert.Equal(t, DemotionSticky, policy)

	_, err = ParseDemotionPolicy("forgiving")
	assert.Error(t, err)
}

func TestDeductXP_Recompute(t *testing.T) {
	levels := []models.Level{
		{ID: 1, RequiredXP: 0},
		{ID: 2, RequiredXP: 400},
		{ID: 3, RequiredXP: 1000},
	}
	profile := &models.Profile{CurrentXP: 500, LevelID: 2}

	adj := DeductXP(levels, profile, 150, DemotionRecompute)

	assert.Equal(t, 500, adj.PreviousXP)
	assert.Equal(t, 350, adj.NewXP)
	assert.Equal(t, uint(1), adj.NewLevelID)
	assert.True(t, adj.Demoted())
}

func TestDeductXP_Sticky(t *testing.T) {
	levels := []models.Level{
		{ID: 1, RequiredXP: 0},
		{ID: 2, RequiredXP: 400},
		{ID: 3, RequiredXP: 1000},
	}
	profile := &models.Profile{CurrentXP: 500, LevelID: 2}

	adj := DeductXP(levels, profile, 150, DemotionSticky)

	assert.Equal(t, 350, adj.NewXP)
	assert.Equal(t, uint(2), adj.NewLevelID)
	assert.False(t, adj.Demoted())
}

func TestDeductXP_FloorsAtZero(t *testing.T) {
	profile := &models.Profile{CurrentXP: 80, LevelID: 1}

	adj := DeductXP(careerLadder(), profile, 200, DemotionRecompute)

	assert.Equal(t, 0, adj.NewXP)
	assert.Equal(t, uint(1), adj.NewLevelID)
}

func TestDeductXP_RecomputeKeepsLevelWhenStillCovered(t *testing.T) {
	profile := &models.Profile{CurrentXP: 5200, LevelID: 4}

	adj := DeductXP(careerLadder(), profile, 150, DemotionRecompute)

	assert.Equal(t, 5050, adj.NewXP)
	assert.Equal(t, uint(4), adj.NewLevelID)
}
