package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StoreSweep is the outcome of sweeping one expirable store.
type StoreSweep struct {
	Store   string
	Deleted int64
	Err     error
}

// SweepReport is the outcome of one sweep cycle.
type SweepReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Stores     []StoreSweep
}

// Deleted totals the rows removed across stores.
func (r SweepReport) Deleted() int64 {
	var n int64
	for _, s := range r.Stores {
		n += s.Deleted
	}
	return n
}

// Failed returns the stores whose sweep failed.
func (r SweepReport) Failed() []StoreSweep {
	var failed []StoreSweep
	for _, s := range r.Stores {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// Err joins the per-store failures, or returns nil.
func (r SweepReport) Err() error {
	var errs []error
	for _, s := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", s.Store, s.Err))
	}
	return errors.Join(errs...)
}

// Sweep deletes every expirable record whose expiry is at or before now.
// A failing store is recorded in the report and does not stop the others;
// the returned error is only ErrNotInitialized.
func (s *Store) Sweep(ctx context.Context) (SweepReport, error) {
	conn, err := s.DB()
	if err != nil {
		return SweepReport{}, err
	}

	now := s.opts.Now()
	report := SweepReport{StartedAt: now}
	cutoff := FormatTime(now)

	for _, es := range expirableStores {
		// INDEXED BY makes SQLite fail rather than fall back to a full scan.
		q := fmt.Sprintf(`DELETE FROM %s INDEXED BY %s WHERE expires_at IS NOT NULL AND expires_at <= ?`, es.table, es.index)
		res, err := conn.ExecContext(ctx, q, cutoff)
		outcome := StoreSweep{Store: es.table}
		if err == nil {
			outcome.Deleted, err = res.RowsAffected()
		}
		if err != nil {
			outcome.Err = err
			s.opts.Metrics.SweepFailed(es.table)
			s.log.Warn("expiry sweep failed", zap.String("store", es.table), zap.Error(err))
		} else {
			s.opts.Metrics.ExpiredDeleted(es.table, outcome.Deleted)
		}
		report.Stores = append(report.Stores, outcome)
	}

	report.FinishedAt = s.opts.Now()
	s.opts.Metrics.ObserveSweep(report.FinishedAt.Sub(report.StartedAt).Seconds())

	s.sweepMu.Lock()
	s.lastSweep = &report
	s.sweepMu.Unlock()

	s.log.Info("expiry sweep finished",
		zap.Int64("deleted", report.Deleted()),
		zap.Int("failed_stores", len(report.Failed())))
	return report, nil
}

// LastSweep returns the most recent report, if any sweep has run.
func (s *Store) LastSweep() (SweepReport, bool) {
	s.sweepMu.RLock()
	defer s.sweepMu.RUnlock()
	if s.lastSweep == nil {
		return SweepReport{}, false
	}
	return *s.lastSweep, true
}

// StartExpiryCleanup runs one sweep immediately and then one per sweep
// interval until Close. Starting it twice is a no-op.
func (s *Store) StartExpiryCleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrNotInitialized
	}
	if s.cancel != nil {
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.cleanupLoop(loopCtx)
	s.log.Info("expiry cleanup started", zap.Duration("interval", s.opts.SweepInterval))
	return nil
}

func (s *Store) cleanupLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	s.runSweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("expiry cleanup stopped")
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *Store) runSweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.Sweep(ctx)
	if err != nil {
		s.log.Debug("sweep skipped", zap.Error(err))
		return
	}
	if s.opts.OnSweep != nil {
		s.opts.OnSweep(report)
	}
}
