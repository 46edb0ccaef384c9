package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/heraerp/heraerp-prd-sub011/internal/config"
	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/logger"
	"github.com/heraerp/heraerp-prd-sub011/internal/metrics"
	"github.com/heraerp/heraerp-prd-sub011/internal/service"
)

// App holds configuration and the lazily opened services used by commands.
// Commands reach the services through Data and Trial, so commands that never
// touch the database (db delete) never open it.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// IsInteractive reports whether stdin is a terminal.
	IsInteractive func() bool
	// Confirm asks a yes/no question; nil uses a huh prompt.
	Confirm func(title, description string) (bool, error)
	// Now is the clock shared by the store and services; nil is time.Now.
	Now func() time.Time

	onSweep func(db.SweepReport)

	store *db.Store
	owned bool
	data  *service.LocalDataService
	trial *service.TrialService
}

// NewApp returns an App whose config and logger are resolved on first use.
func NewApp() *App {
	reg := prometheus.NewRegistry()
	return &App{
		Registry: reg,
		Metrics:  metrics.New(reg),
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}
}

// Attach uses an already initialized store. The App does not close it.
func (a *App) Attach(store *db.Store) {
	a.store = store
	a.owned = false
	a.data, a.trial = nil, nil
}

func (a *App) clock() func() time.Time {
	if a.Now != nil {
		return a.Now
	}
	return time.Now
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// setup resolves config and logger from the parsed flags of cmd.
func (a *App) setup(load func() (*config.Config, error)) error {
	if a.Config == nil {
		cfg, err := load()
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	if a.Logger == nil {
		log, err := logger.New(a.Config.Log)
		if err != nil {
			return err
		}
		a.Logger = log
	}
	return nil
}

// open opens the configured database. Auto cleanup only runs for the
// long-lived daemon.
func (a *App) open(ctx context.Context, autoCleanup bool) (*db.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.Config == nil {
		return nil, errors.New("configuration not loaded")
	}
	path := a.Config.DB.Path
	if path != db.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	store, err := db.Open(ctx, db.Options{
		Path:               path,
		SweepInterval:      a.Config.Sweep.Interval,
		Logger:             a.logger(),
		Metrics:            a.Metrics,
		Now:                a.clock(),
		OnSweep:            a.onSweep,
		DisableAutoCleanup: !autoCleanup,
	})
	if err != nil {
		return nil, err
	}
	a.store, a.owned = store, true
	return store, nil
}

// Data returns the local data adapter, opening the store if needed.
func (a *App) Data(ctx context.Context) (*service.LocalDataService, error) {
	if a.data != nil {
		return a.data, nil
	}
	store, err := a.open(ctx, false)
	if err != nil {
		return nil, err
	}
	retention := domainRetention(a.Config)
	a.data = service.NewLocalDataService(store,
		service.WithRetention(retention),
		service.WithClock(a.clock()),
		service.WithLogger(a.logger()),
		service.WithMetrics(a.Metrics),
		service.WithObserver(service.NewLogUseCaseObserver(a.logger())),
	)
	return a.data, nil
}

// Trial returns the trial manager over the same store.
func (a *App) Trial(ctx context.Context) (*service.TrialService, error) {
	if a.trial != nil {
		return a.trial, nil
	}
	data, err := a.Data(ctx)
	if err != nil {
		return nil, err
	}
	cfg := service.TrialConfig{}
	if a.Config != nil {
		cfg.Duration = a.Config.Trial.Duration
		cfg.CacheTTL = a.Config.Trial.CacheTTL
		cfg.MaxMigrationBytes = a.Config.Migration.MaxSizeBytes
	}
	a.trial = service.NewTrialService(data, service.NewStoreMetadata(a.store), cfg,
		service.WithTrialClock(a.clock()),
		service.WithTrialLogger(a.logger()),
		service.WithTrialMetrics(a.Metrics),
		service.WithTrialObserver(service.NewLogUseCaseObserver(a.logger())),
	)
	return a.trial, nil
}

// Close closes a store the App opened itself.
func (a *App) Close() error {
	var err error
	if a.owned && a.store != nil {
		err = a.store.Close()
	}
	if a.owned {
		a.store, a.data, a.trial = nil, nil, nil
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return err
}

func domainRetention(cfg *config.Config) time.Duration {
	if cfg == nil {
		return 0
	}
	return cfg.Retention
}
