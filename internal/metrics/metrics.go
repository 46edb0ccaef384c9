// Package metrics holds the Prometheus counters of the progressive store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the store counters. A nil *Metrics is valid and records
// nothing, so components can run without a registry.
type Metrics struct {
	recordsCreated *prometheus.CounterVec
	expiredDeleted *prometheus.CounterVec
	sweepErrors    *prometheus.CounterVec
	featureUsage   *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		recordsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hera_local_records_created_total",
			Help: "Records written to the local progressive store.",
		}, []string{"store"}),
		expiredDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hera_local_expired_records_deleted_total",
			Help: "Records removed by the expiry sweep.",
		}, []string{"store"}),
		sweepErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hera_local_sweep_errors_total",
			Help: "Expiry sweep failures per store.",
		}, []string{"store"}),
		featureUsage: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hera_trial_feature_usage_total",
			Help: "Feature usage events recorded for trials.",
		}, []string{"feature"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hera_local_sweep_duration_seconds",
			Help:    "Duration of one expiry sweep cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordCreated(store string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsCreated.WithLabelValues(store).Add(float64(n))
}

func (m *Metrics) ExpiredDeleted(store string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredDeleted.WithLabelValues(store).Add(float64(n))
}

func (m *Metrics) SweepFailed(store string) {
	if m == nil {
		return
	}
	m.sweepErrors.WithLabelValues(store).Inc()
}

func (m *Metrics) FeatureUsed(feature string) {
	if m == nil {
		return
	}
	m.featureUsage.WithLabelValues(feature).Inc()
}

func (m *Metrics) ObserveSweep(seconds float64) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(seconds)
}
