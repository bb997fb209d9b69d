package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL", "LOG_FORMAT", "DATABASE_URL", "REDIS_URL",
	shutdownSecondsEnvVar, shutdownDurEnvVar, cacheSecondsEnvVar, cacheDurEnvVar,
	rateLimitEnvVar, "EVENTS_CHANNEL",
}

// isolate clears the environment for this test and moves into an empty
// directory so no stray .env file is picked up.
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultAppName, cfg.AppName)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, defaultShutdownDelay, cfg.ShutdownPeriod)
	assert.Equal(t, defaultBalanceTTL, cfg.BalanceCacheTTL)
	assert.Zero(t, cfg.TransferRateLimit)
	assert.Equal(t, defaultEventsChannel, cfg.EventsChannel)
}

func TestLoadOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", ":9000")
	t.Setenv(shutdownDurEnvVar, "3s")
	t.Setenv(cacheSecondsEnvVar, "5")
	t.Setenv(rateLimitEnvVar, "20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Address())
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 5*time.Second, cfg.BalanceCacheTTL)
	assert.Equal(t, 20, cfg.TransferRateLimit)
}

func TestLoadRequiresBackendsOutsideDev(t *testing.T) {
	isolate(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/wallet")
	_, err = Load()
	require.ErrorContains(t, err, "REDIS_URL")
}

func TestLoadInvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv(shutdownSecondsEnvVar, "soon")
	_, err := Load()
	assert.ErrorContains(t, err, shutdownSecondsEnvVar)
}

func TestLoadReadsDotEnv(t *testing.T) {
	isolate(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(wd, ".env"), []byte("APP_NAME=FromDotEnv\nEVENTS_CHANNEL=custom\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("EVENTS_CHANNEL")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "FromDotEnv", cfg.AppName)
	assert.Equal(t, "custom", cfg.EventsChannel)
}
