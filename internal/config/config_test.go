package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "forecast:update_queue", cfg.QueueKey)
	assert.Equal(t, 1000, cfg.QueueCapacity)
	assert.Equal(t, 24*time.Hour, cfg.QueueTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, time.Hour, cfg.CheckInterval)
	assert.Equal(t, 30, cfg.WindowDays)
	assert.False(t, cfg.AutoRepair)
	assert.Equal(t, 50.0, cfg.RepairWritesPerSecond)
	assert.False(t, cfg.HasDatabases())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(KeyPostgresDSN, "postgres://u:p@localhost:5432/fg")
	t.Setenv(KeyClickhouseDSN, "clickhouse://localhost:9000/fg")
	t.Setenv(KeyQueueTTL, "90m")
	t.Setenv(KeyWindowDays, "7")
	t.Setenv(KeyAutoRepair, "true")
	t.Setenv(KeyRepairWritesPerSecond, "2.5")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.True(t, cfg.HasDatabases())
	assert.Equal(t, 90*time.Minute, cfg.QueueTTL)
	assert.Equal(t, 7, cfg.WindowDays)
	assert.True(t, cfg.AutoRepair)
	assert.Equal(t, 2.5, cfg.RepairWritesPerSecond)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv(KeyLogLevel, "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.Int("window-days", 30, "")
	require.NoError(t, flags.Parse([]string{"--log-level=debug"}))

	v := New()
	require.NoError(t, BindFlags(v, flags, map[string]string{
		KeyLogLevel:   "log-level",
		KeyWindowDays: "window-days",
	}))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "changed flag wins over env")
	assert.Equal(t, 30, cfg.WindowDays, "unchanged flag keeps default")
}

func TestBindFlags_UnknownFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	err := BindFlags(New(), flags, map[string]string{KeyLogLevel: "missing"})
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := map[string]string{
		KeyQueueCapacity:         "0",
		KeyCheckInterval:         "0s",
		KeyRepairWritesPerSecond: "-1",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load(New())
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "FORECAST_GUARD_DOTENV_TEST"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv(key))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
