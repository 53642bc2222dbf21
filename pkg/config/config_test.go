package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0666))
	return file
}

func TestDefault(t *testing.T) {
	config := Default()

	assert.NoError(t, config.Validate())
	assert.Equal(t, 18, config.HeavyLoadCredits)
	assert.Equal(t, 21, config.OverloadCredits)
	assert.Equal(t, 2*time.Second, config.Timeout)
	assert.Equal(t, ModeCSP, config.Mode)
}

func TestLoad(t *testing.T) {
	t.Run("YAML file", func(t *testing.T) {
		//** Arrange
		file := write(t, "config.yaml", "heavy_load_credits: 16\noverload-credits: 20\nmorningCutoff: \"09:00\"\ntimeout: 500ms\nmode: greedy\n")

		//** Act
		config, err := Load(file, "")

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, 16, config.HeavyLoadCredits)
		assert.Equal(t, 20, config.OverloadCredits)
		assert.Equal(t, "09:00", config.MorningCutoff)
		assert.Equal(t, 500*time.Millisecond, config.Timeout)
		assert.Equal(t, ModeGreedy, config.Mode)
		assert.Equal(t, Default().MaxNodes, config.MaxNodes)
	})

	t.Run("JSON file with environment overrides", func(t *testing.T) {
		file := write(t, "config.json", `{"maxNodes": 5000, "includeClosed": true, "logLevel": "debug"}`)
		t.Setenv("SCHEDULER_MAX_NODES", "750")
		t.Setenv("SCHEDULER_TIMEOUT", "3s")

		config, err := Load(file, "")

		require.NoError(t, err)
		assert.Equal(t, 750, config.MaxNodes)
		assert.Equal(t, 3*time.Second, config.Timeout)
		assert.True(t, config.IncludeClosed)
		assert.Equal(t, "debug", config.LogLevel)
	})

	t.Run("Dotenv file", func(t *testing.T) {
		envFile := write(t, ".env", "SCHEDULER_BUSY_DAY_SECTIONS=4\n")
		t.Cleanup(func() { os.Unsetenv("SCHEDULER_BUSY_DAY_SECTIONS") })

		config, err := Load("", envFile)

		require.NoError(t, err)
		assert.Equal(t, 4, config.BusyDaySections)
	})

	t.Run("Missing files fall back to defaults", func(t *testing.T) {
		config, err := Load(filepath.Join(t.TempDir(), "absent.json"), filepath.Join(t.TempDir(), ".env"))

		require.NoError(t, err)
		assert.Equal(t, Default(), config)
	})

	t.Run("Malformed file", func(t *testing.T) {
		_, err := Load(write(t, "config.json", `{"maxNodes": `), "")

		assert.ErrorContains(t, err, "cannot parse")
	})

	t.Run("Unknown key", func(t *testing.T) {
		_, err := Load(write(t, "config.json", `{"maxNode": 10}`), "")

		assert.Error(t, err)
	})

	t.Run("Unknown mode", func(t *testing.T) {
		_, err := Load(write(t, "config.json", `{"mode": "annealing"}`), "")

		assert.ErrorIs(t, err, ErrUnknownMode)
	})

	t.Run("Inconsistent thresholds", func(t *testing.T) {
		_, err := Load(write(t, "config.json", `{"overloadCredits": 12}`), "")

		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.ErrorContains(t, err, "overload credits (12)")
	})
}

func TestSchedulerFromConfig(t *testing.T) {
	config := Default()
	config.Mode = ModeGreedy

	logger, err := config.Logger()
	require.NoError(t, err)
	engine, err := config.Scheduler(logger)
	require.NoError(t, err)
	assert.NotNil(t, engine)

	config.Mode = "unknown"
	_, err = config.Scheduler(logger)
	assert.ErrorIs(t, err, ErrUnknownMode)

	options := Default().SchedulerOptions()
	assert.Equal(t, 200000, options.Solver.MaxNodes)
	assert.Equal(t, "18:00", options.Build.EveningCutoff)
}
