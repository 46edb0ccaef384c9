// Package config loads hera settings from defaults, an optional config
// file, HERA_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/heraerp/heraerp-prd-sub011/internal/logger"
)

// Config holds all application configuration.
type Config struct {
	DB        DBConfig
	Retention time.Duration
	Sweep     SweepConfig
	Trial     TrialConfig
	Migration MigrationConfig
	Log       logger.Config
	Daemon    DaemonConfig
}

type DBConfig struct {
	Path string
}

type SweepConfig struct {
	Interval time.Duration
}

type TrialConfig struct {
	Duration time.Duration
	CacheTTL time.Duration
}

type MigrationConfig struct {
	MaxSizeBytes int64
}

type DaemonConfig struct {
	Addr string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", defaultDBPath())
	v.SetDefault("retention.days", 30)
	v.SetDefault("sweep.interval", "24h")
	v.SetDefault("trial.days", 30)
	v.SetDefault("trial.cache_ttl", "5m")
	v.SetDefault("migration.max_size_bytes", 100*1024*1024)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("daemon.addr", "127.0.0.1:8089")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "hera-progressive.db"
	}
	return filepath.Join(home, ".hera", "hera-progressive.db")
}

// Load resolves configuration. Priority, highest first:
// 1. flags bound from fs (only flags the user actually set)
// 2. environment variables with the HERA_ prefix (e.g. HERA_DB_PATH)
// 3. hera.yaml / hera.toml in the working directory or $HOME/.hera
// 4. built-in defaults
//
// fs may be nil. Flag names use the key with dots replaced by dashes
// (db-path, log-level).
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("hera")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".hera"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("HERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil {
				return
			}
			key := strings.ReplaceAll(f.Name, "-", ".")
			if !knownKeys[key] {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("binding flags: %w", bindErr)
		}
	}

	cfg := &Config{
		DB:        DBConfig{Path: v.GetString("db.path")},
		Retention: time.Duration(v.GetInt("retention.days")) * 24 * time.Hour,
		Sweep:     SweepConfig{Interval: v.GetDuration("sweep.interval")},
		Trial: TrialConfig{
			Duration: time.Duration(v.GetInt("trial.days")) * 24 * time.Hour,
			CacheTTL: v.GetDuration("trial.cache_ttl"),
		},
		Migration: MigrationConfig{MaxSizeBytes: v.GetInt64("migration.max_size_bytes")},
		Log: logger.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Daemon: DaemonConfig{Addr: v.GetString("daemon.addr")},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var knownKeys = map[string]bool{
	"db.path": true, "retention.days": true, "sweep.interval": true,
	"trial.days": true, "trial.cache_ttl": true, "migration.max_size_bytes": true,
	"log.level": true, "log.format": true, "log.output": true, "daemon.addr": true,
}

func (c *Config) validate() error {
	if c.DB.Path == "" {
		return errors.New("config: db.path must not be empty")
	}
	if c.Retention <= 0 {
		return errors.New("config: retention.days must be positive")
	}
	if c.Sweep.Interval <= 0 {
		return errors.New("config: sweep.interval must be positive")
	}
	if c.Trial.Duration <= 0 {
		return errors.New("config: trial.days must be positive")
	}
	if c.Migration.MaxSizeBytes <= 0 {
		return errors.New("config: migration.max_size_bytes must be positive")
	}
	return nil
}
