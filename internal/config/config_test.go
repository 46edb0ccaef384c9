package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".hera", "hera-progressive.db"), cfg.DB.Path)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, 30*24*time.Hour, cfg.Trial.Duration)
	assert.Equal(t, 5*time.Minute, cfg.Trial.CacheTTL)
	assert.EqualValues(t, 100*1024*1024, cfg.Migration.MaxSizeBytes)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:8089", cfg.Daemon.Addr)
}

func TestLoad_FileThenEnvThenFlags(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hera.yaml"), []byte(
		"db:\n  path: /from/file.db\nsweep:\n  interval: 1h\ntrial:\n  days: 14\n"), 0o600))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/file.db", cfg.DB.Path)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, 14*24*time.Hour, cfg.Trial.Duration)

	t.Setenv("HERA_DB_PATH", "/from/env.db")
	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.DB.Path)

	fs := pflag.NewFlagSet("hera", pflag.ContinueOnError)
	fs.String("db-path", "", "")
	fs.String("log-level", "", "")
	require.NoError(t, fs.Parse([]string{"--db-path", "/from/flag.db"}))

	cfg, err = Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag.db", cfg.DB.Path)
	assert.Equal(t, "warn", cfg.Log.Level, "unset flag must not override the default")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("HERA_RETENTION_DAYS", "0")

	_, err := Load(nil)
	assert.ErrorContains(t, err, "retention.days")
}
