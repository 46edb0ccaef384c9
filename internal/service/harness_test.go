package service

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/metrics"
	"github.com/heraerp/heraerp-prd-sub011/internal/testutil"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by the store and both services.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(at time.Time) *testClock {
	return &testClock{now: at}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store    *db.Store
	data     *LocalDataService
	trial    *TrialService
	clock    *testClock
	registry *prometheus.Registry
}

func newHarness(t *testing.T, cfg TrialConfig) *harness {
	t.Helper()
	clock := newTestClock(t0)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store := testutil.NewTestStore(t, testutil.WithClock(clock.Now))
	data := NewLocalDataService(store, WithClock(clock.Now), WithMetrics(m))
	trial := NewTrialService(data, NewStoreMetadata(store), cfg,
		WithTrialClock(clock.Now), WithTrialMetrics(m))
	return &harness{store: store, data: data, trial: trial, clock: clock, registry: reg}
}

// counterTotal sums every series of a counter family.
func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
