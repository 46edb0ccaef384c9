package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraerp/heraerp-prd-sub011/internal/app"
	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
	"github.com/heraerp/heraerp-prd-sub011/internal/repository"
	"github.com/heraerp/heraerp-prd-sub011/internal/testutil"
)

const day = 24 * time.Hour

func TestTrialCountdown(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	st, err := h.trial.InitializeTrial(ctx, "org-1", "restaurant")
	require.NoError(t, err)
	assert.Equal(t, 30, st.DaysRemaining)
	assert.Equal(t, 720, st.HoursRemaining)
	assert.True(t, st.IsActive)
	assert.Equal(t, domain.TrialActive, st.Status)

	h.clock.Advance(29 * day)
	st, err = h.trial.GetTrialStatus(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.DaysRemaining)
	assert.True(t, st.IsActive)

	h.clock.Advance(2 * day)
	st, err = h.trial.GetTrialStatus(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 0, st.DaysRemaining)
	assert.Equal(t, 0, st.HoursRemaining)
	assert.False(t, st.IsActive)
	assert.Equal(t, domain.TrialExpired, st.Status)
}

func TestTrialCountdown_PartialDayRoundsUp(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	_, err := h.trial.InitializeTrial(ctx, "org-1", "salon")
	require.NoError(t, err)

	h.clock.Advance(29*day + 20*time.Hour)
	st, err := h.trial.GetTrialStatus(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.DaysRemaining)
	assert.Equal(t, 4, st.HoursRemaining)
}

func TestInitializeTrial_RestartResetsUsage(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	_, err := h.trial.InitializeTrial(ctx, "org-1", "restaurant")
	require.NoError(t, err)
	require.True(t, h.trial.TrackFeatureUsage(ctx, "org-1", "pos").Recorded)

	h.clock.Advance(5 * day)
	st, err := h.trial.InitializeTrial(ctx, "org-1", "restaurant")
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalFeatureUsage)
	assert.Equal(t, 30, st.DaysRemaining)
	assert.True(t, st.StartedAt.Equal(t0.Add(5*day)))
}

func TestGetTrialStatus_Missing(t *testing.T) {
	h := newHarness(t, TrialConfig{})

	_, err := h.trial.GetTrialStatus(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrTrialNotFound)
}

func TestGetTrialStatus_EligibleWithBusinessData(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	_, err := h.trial.InitializeTrial(ctx, "org-1", "furniture")
	require.NoError(t, err)

	st, err := h.trial.GetTrialStatus(ctx, "org-1")
	require.NoError(t, err)
	assert.False(t, st.ConversionEligible)

	for range 5 {
		require.NoError(t, h.data.CreateEntity(ctx, testutil.NewTestEntity("org-1", "product", "Item")))
	}
	st, err = h.trial.GetTrialStatus(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 5, st.EntityCount)
	assert.True(t, st.ConversionEligible)
	assert.Positive(t, st.StorageUsedBytes)
}

func TestTrackFeatureUsage_NoTrialIsNotAnError(t *testing.T) {
	h := newHarness(t, TrialConfig{})

	out := h.trial.TrackFeatureUsage(context.Background(), "nobody", "pos")
	assert.False(t, out.Recorded)
	assert.NoError(t, out.Err)
	assert.Equal(t, "no trial", out.Reason)
	assert.Zero(t, counterTotal(t, h.registry, "hera_trial_feature_usage_total"))
}

func TestTrackFeatureUsage_InvalidatesCachedStatus(t *testing.T) {
	h := newHarness(t, TrialConfig{CacheTTL: time.Hour})
	ctx := context.Background()

	_, err := h.trial.InitializeTrial(ctx, "org-1", "restaurant")
	require.NoError(t, err)
	st, err := h.trial.GetTrialStatus(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, 0, st.TotalFeatureUsage)

	require.True(t, h.trial.TrackFeatureUsage(ctx, "org-1", "pos").Recorded)
	require.True(t, h.trial.TrackFeatureUsage(ctx, "org-1", "pos").Recorded)
	require.True(t, h.trial.TrackFeatureUsage(ctx, "org-1", "menu").Recorded)

	st, err = h.trial.GetTrialStatus(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalFeatureUsage)
	assert.Equal(t, 3.0, counterTotal(t, h.registry, "hera_trial_feature_usage_total"))
}

func TestTrialMetadata_CachedCopiesAreIndependent(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	_, err := h.trial.InitializeTrial(ctx, "org-1", "restaurant")
	require.NoError(t, err)

	m, err := h.trial.load(ctx, "org-1")
	require.NoError(t, err)
	m.FeatureUsage["tampered"] = 99

	again, err := h.trial.load(ctx, "org-1")
	require.NoError(t, err)
	assert.NotContains(t, again.FeatureUsage, "tampered")
}

func TestGetConversionMetrics(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	_, err := h.trial.InitializeTrial(ctx, "org-1", "restaurant")
	require.NoError(t, err)
	h.trial.TrackFeatureUsage(ctx, "org-1", "pos")
	h.trial.TrackFeatureUsage(ctx, "org-1", "menu")
	h.clock.Advance(day)
	h.trial.TrackFeatureUsage(ctx, "org-1", "reports")

	cm, err := h.trial.GetConversionMetrics(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cm.DaysElapsed)
	assert.Equal(t, 3, cm.TotalUsage)
	assert.Equal(t, 3, cm.DistinctFeatures)
	assert.Equal(t, 2, cm.ActiveDays)
	assert.Equal(t, 30, cm.EngagementScore)
	assert.Equal(t, 100, cm.ConsistencyScore)
	assert.Equal(t, 51, cm.ConversionProbability)
	assert.Equal(t, app.PlanStarter, cm.RecommendedPlan)
	require.Len(t, cm.Blockers, 1)
	assert.Equal(t, "no_business_data", cm.Blockers[0].Code)
}

func TestConversionMetrics_Blockers(t *testing.T) {
	m := &domain.TrialMetadata{
		OrganizationID: "org-1",
		StartedAt:      t0,
		FeatureUsage:   map[string]int{"pos": 1},
		ActiveDays:     []string{"2026-03-01"},
	}
	cm := conversionMetrics(m, 0, t0.Add(10*day))

	var codes []string
	for _, b := range cm.Blockers {
		codes = append(codes, b.Code)
	}
	assert.Equal(t, []string{"low_engagement", "narrow_exploration", "no_business_data", "single_day_usage"}, codes)
	assert.Equal(t, 10, cm.DaysElapsed)
}

func TestConversionMetrics_RecommendedPlan(t *testing.T) {
	tests := []struct {
		usage int
		want  app.PlanTier
	}{
		{usage: 30, want: app.PlanStarter},
		{usage: 31, want: app.PlanProfessional},
		{usage: 101, want: app.PlanEnterprise},
	}
	for _, tt := range tests {
		m := &domain.TrialMetadata{StartedAt: t0, FeatureUsage: map[string]int{"pos": tt.usage}}
		assert.Equal(t, tt.want, conversionMetrics(m, 1, t0).RecommendedPlan, "usage %d", tt.usage)
	}
}

func TestConvertTrial(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	_, err := h.trial.InitializeTrial(ctx, "org-1", "restaurant")
	require.NoError(t, err)

	st, err := h.trial.ConvertTrial(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TrialConverted, st.Status)
	assert.False(t, st.IsActive)

	_, err = h.trial.ConvertTrial(ctx, "org-1")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = h.trial.ExtendTrial(ctx, "org-1", 7)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExtendTrial(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	_, err := h.trial.InitializeTrial(ctx, "org-1", "restaurant")
	require.NoError(t, err)
	h.clock.Advance(10 * day)

	st, err := h.trial.ExtendTrial(ctx, "org-1", 7)
	require.NoError(t, err)
	assert.Equal(t, domain.TrialExtended, st.Status)
	assert.True(t, st.ExpiresAt.Equal(t0.Add(37*day)))
	assert.Equal(t, 27, st.DaysRemaining)
	assert.True(t, st.IsActive)

	_, err = h.trial.ExtendTrial(ctx, "org-1", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExtendTrial_AfterExpiryCountsFromNow(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	_, err := h.trial.InitializeTrial(ctx, "org-1", "restaurant")
	require.NoError(t, err)
	h.clock.Advance(40 * day)

	st, err := h.trial.ExtendTrial(ctx, "org-1", 5)
	require.NoError(t, err)
	assert.True(t, st.ExpiresAt.Equal(t0.Add(45*day)))
	assert.Equal(t, 5, st.DaysRemaining)
}

func TestGenerateConversionOffers(t *testing.T) {
	offers := GenerateConversionOffers(2, 150)
	require.Len(t, offers, 3)
	assert.Equal(t, app.OfferUrgency, offers[0].Kind)
	assert.Equal(t, "urgency-50", offers[0].ID)
	assert.True(t, offers[0].OfferPrice.Equal(decimal.RequireFromString("49.50")), "price = %s", offers[0].OfferPrice)
	assert.True(t, offers[0].Urgent)
	assert.Equal(t, "standard-professional", offers[1].ID)
	assert.Equal(t, "enterprise", offers[2].ID)

	quiet := GenerateConversionOffers(10, 5)
	require.Len(t, quiet, 1)
	assert.Equal(t, app.OfferStandard, quiet[0].Kind)

	assert.Len(t, GenerateConversionOffers(3, 100), 2)
}

func TestListTrials_OnlyTrialKeys(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	conn, err := h.store.DB()
	require.NoError(t, err)
	meta := repository.NewSQLiteMetadataRepo(conn)
	require.NoError(t, meta.Put(ctx, "schema_version", []byte(`"1"`), t0))
	require.NoError(t, meta.Put(ctx, "trialx", []byte(`{}`), t0))
	require.NoError(t, meta.Put(ctx, "TRIAL_settings", []byte(`not json`), t0))

	_, err = h.trial.InitializeTrial(ctx, "org-b", "salon")
	require.NoError(t, err)
	_, err = h.trial.InitializeTrial(ctx, "org-a", "restaurant")
	require.NoError(t, err)
	_, err = h.trial.ConvertTrial(ctx, "org-b")
	require.NoError(t, err)

	trials, err := h.trial.ListTrials(ctx)
	require.NoError(t, err)
	require.Len(t, trials, 2)
	assert.Equal(t, "org-a", trials[0].OrganizationID)
	assert.Equal(t, domain.TrialActive, trials[0].Status)
	assert.Equal(t, "org-b", trials[1].OrganizationID)
	assert.Equal(t, domain.TrialConverted, trials[1].Status)
}

func TestTrialService_AfterCloseNotInitialized(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	require.NoError(t, h.data.Close())

	_, err := h.trial.InitializeTrial(ctx, "org-1", "retail")
	assert.ErrorIs(t, err, db.ErrNotInitialized)

	_, err = h.trial.GetTrialStatus(ctx, "org-2")
	assert.ErrorIs(t, err, db.ErrNotInitialized)

	_, err = h.trial.ListTrials(ctx)
	assert.ErrorIs(t, err, db.ErrNotInitialized)

	assert.ErrorIs(t, h.trial.DiscardTrial(ctx, "org-2"), db.ErrNotInitialized)
}

func TestDiscardTrial(t *testing.T) {
	h := newHarness(t, TrialConfig{})
	ctx := context.Background()

	_, err := h.trial.InitializeTrial(ctx, "org-1", "retail")
	require.NoError(t, err)
	_, err = h.trial.GetTrialStatus(ctx, "org-1")
	require.NoError(t, err)

	require.NoError(t, h.trial.DiscardTrial(ctx, "org-1"))
	_, err = h.trial.GetTrialStatus(ctx, "org-1")
	assert.ErrorIs(t, err, ErrTrialNotFound, "cached copy must not survive")

	assert.ErrorIs(t, h.trial.DiscardTrial(ctx, "org-1"), ErrTrialNotFound)
	trials, err := h.trial.ListTrials(ctx)
	require.NoError(t, err)
	assert.Empty(t, trials)
}
