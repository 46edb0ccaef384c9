// Package db owns the local progressive database: its schema, its lifecycle
// and the expiry sweep that enforces local retention.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/heraerp/heraerp-prd-sub011/internal/metrics"
)

const (
	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"
	// DefaultPath is the file name used when no path is configured.
	DefaultPath = "hera-progressive.db"
	// DefaultSweepInterval is the period of the expiry cleanup loop.
	DefaultSweepInterval = 24 * time.Hour
)

// State is the lifecycle state of a Store.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Path          string
	SweepInterval time.Duration
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
	// OnSweep receives every report produced by the cleanup loop.
	OnSweep func(SweepReport)
	// DisableAutoCleanup keeps Initialize from starting the cleanup loop.
	DisableAutoCleanup bool
}

// Store is the local schema store. It exclusively owns the database handle
// and the cleanup goroutine.
type Store struct {
	opts Options
	log  *zap.Logger

	initMu sync.Mutex

	mu     sync.Mutex
	state  State
	conn   *sql.DB
	lock   *dbLock
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sweepMu   sync.RWMutex
	lastSweep *SweepReport
}

// New returns an uninitialized Store.
func New(opts Options) *Store {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		opts: opts,
		log:  log.Named("store").With(zap.String("path", opts.Path)),
	}
}

// Open is New followed by Initialize.
func Open(ctx context.Context, opts Options) (*Store, error) {
	s := New(opts)
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.opts.Path }

// Now returns the store clock.
func (s *Store) Now() time.Time { return s.opts.Now() }

// Metrics returns the configured metrics, possibly nil.
func (s *Store) Metrics() *metrics.Metrics { return s.opts.Metrics }

// State reports the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize opens the database and upgrades it to SchemaVersion, then
// starts the expiry cleanup unless disabled. Calling it on a ready store is
// a no-op; calling it after Close reopens the database.
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	if s.state == StateReady {
		s.mu.Unlock()
		return nil
	}
	s.state = StateInitializing
	s.mu.Unlock()

	conn, lock, err := s.open(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateUninitialized
		s.mu.Unlock()
		s.log.Error("initialize failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.lock = lock
	s.state = StateReady
	s.mu.Unlock()
	s.log.Info("local database ready", zap.Int("schema_version", SchemaVersion))

	if s.opts.DisableAutoCleanup {
		return nil
	}
	return s.StartExpiryCleanup(context.WithoutCancel(ctx))
}

func (s *Store) open(ctx context.Context) (*sql.DB, *dbLock, error) {
	path := s.opts.Path
	var lock *dbLock
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("%w: creating directory: %w", ErrStorageUnavailable, err)
		}
		l, err := acquireShared(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: locking database: %w", ErrStorageUnavailable, err)
		}
		lock = l
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		lock.release()
		return nil, nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if path == MemoryPath {
		// Every pooled connection would get its own empty database.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		lock.release()
		return nil, nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		lock.release()
		return nil, nil, fmt.Errorf("upgrading schema: %w", err)
	}
	return conn, lock, nil
}

func dsn(path string) string {
	if path == MemoryPath {
		return MemoryPath
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// DB returns the open handle.
func (s *Store) DB() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, ErrNotInitialized
	}
	return s.conn, nil
}

// UnitOfWork returns a unit of work over the open handle.
func (s *Store) UnitOfWork() (UnitOfWork, error) {
	conn, err := s.DB()
	if err != nil {
		return nil, err
	}
	return NewSQLiteUnitOfWork(conn), nil
}

// Close stops the cleanup loop, waits for it and releases the handle.
// It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.state != StateReady {
		if s.state == StateUninitialized {
			s.state = StateClosed
		}
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	conn, lock := s.conn, s.lock
	s.cancel, s.conn, s.lock = nil, nil, nil
	s.state = StateClosed
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	err := conn.Close()
	lock.release()
	if err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	s.log.Info("local database closed")
	return nil
}
