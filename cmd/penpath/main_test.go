package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	want := []string{"serve", "migrate", "seed-levels"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	down, _, err := rootCmd.Find([]string{"migrate", "down"})
	require.NoError(t, err)
	assert.Equal(t, "down", down.Name())
}

func TestConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestMigrateDown_RejectsZeroSteps(t *testing.T) {
	rollbackSteps = 0
	t.Cleanup(func() { rollbackSteps = 1 })

	err := migrateDownCmd.RunE(migrateDownCmd, nil)
	assert.EqualError(t, err, "--steps must be at least 1")
}
