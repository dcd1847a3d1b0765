package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoConfigFile(t *testing.T) {
	cfg, err := Load("jobfire", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.Worker.PollRate)
	assert.Equal(t, 32, cfg.Worker.CommandChannelSize)
	assert.Equal(t, "jobfire", cfg.Redis.KeyPrefix)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("worker:\n  poll_rate: 250ms\n  command_channel_size: 8\npostgres:\n  dsn: postgres://localhost/jobfire\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jobfire.yaml"), content, 0o644))

	cfg, err := Load("jobfire", dir)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.PollRate)
	assert.Equal(t, 8, cfg.Worker.CommandChannelSize)
	assert.Equal(t, "postgres://localhost/jobfire", cfg.Postgres.DSN)
}

func TestLoadEnvOverridesNestedKey(t *testing.T) {
	t.Setenv("JOBFIRE_WORKER_POLL_RATE", "500ms")

	cfg, err := Load("jobfire", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.PollRate)
}

func TestWorkerConfigToSettings(t *testing.T) {
	c := WorkerConfig{PollRate: 50 * time.Millisecond, CommandChannelSize: 16}
	settings := c.ToSettings()
	assert.Equal(t, 50*time.Millisecond, settings.PollRate)
	assert.Equal(t, 16, settings.CommandChannelSize)
}
