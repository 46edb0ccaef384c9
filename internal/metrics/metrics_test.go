package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordCreated("core_entities", 3)
	m.RecordCreated("core_entities", 0)
	m.ExpiredDeleted("core_entities", 2)
	m.ExpiredDeleted("core_organizations", -1)
	m.SweepFailed("universal_transactions")
	m.FeatureUsed("pos")
	m.FeatureUsed("pos")
	m.ObserveSweep(0.25)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.recordsCreated.WithLabelValues("core_entities")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.expiredDeleted.WithLabelValues("core_entities")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.expiredDeleted.WithLabelValues("core_organizations")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepErrors.WithLabelValues("universal_transactions")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.featureUsage.WithLabelValues("pos")))

	n, err := testutil.GatherAndCount(reg, "hera_local_sweep_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCreated("core_entities", 1)
		m.ExpiredDeleted("core_entities", 1)
		m.SweepFailed("core_entities")
		m.FeatureUsed("pos")
		m.ObserveSweep(1)
	})
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
