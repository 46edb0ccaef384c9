package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/heraerp/heraerp-prd-sub011/internal/app"
	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
	"github.com/heraerp/heraerp-prd-sub011/internal/metrics"
	"github.com/heraerp/heraerp-prd-sub011/internal/repository"
)

// ErrTrialNotFound is returned when an organization has no trial metadata.
var ErrTrialNotFound = errors.New("trial not found")

// Conversion eligibility thresholds.
const (
	eligibleUsageEvents  = 10
	eligibleEntities     = 5
	eligibleTransactions = 3
)

type TrialConfig struct {
	Duration          time.Duration
	CacheTTL          time.Duration
	CacheSize         int
	MaxMigrationBytes int64
}

func (c TrialConfig) withDefaults() TrialConfig {
	if c.Duration <= 0 {
		c.Duration = domain.DefaultRetention
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 256
	}
	if c.MaxMigrationBytes <= 0 {
		c.MaxMigrationBytes = 100 * 1024 * 1024
	}
	return c
}

// TrialService tracks the trial window, engagement and migration readiness
// of progressive organizations.
type TrialService struct {
	data     LocalData
	meta     MetadataStore
	cfg      TrialConfig
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Metrics
	observer UseCaseObserver
	cache    *expirable.LRU[string, domain.TrialMetadata]
}

type TrialOption func(*TrialService)

func WithTrialClock(now func() time.Time) TrialOption {
	return func(s *TrialService) { s.now = now }
}

func WithTrialLogger(log *zap.Logger) TrialOption {
	return func(s *TrialService) { s.log = log }
}

func WithTrialMetrics(m *metrics.Metrics) TrialOption {
	return func(s *TrialService) { s.metrics = m }
}

func WithTrialObserver(obs UseCaseObserver) TrialOption {
	return func(s *TrialService) { s.observer = obs }
}

func NewTrialService(data LocalData, meta MetadataStore, cfg TrialConfig, opts ...TrialOption) *TrialService {
	cfg = cfg.withDefaults()
	s := &TrialService{
		data:     data,
		meta:     meta,
		cfg:      cfg,
		now:      time.Now,
		log:      zap.NewNop(),
		observer: NoopUseCaseObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("trial")
	s.cache = expirable.NewLRU[string, domain.TrialMetadata](cfg.CacheSize, nil, cfg.CacheTTL)
	return s
}

func (s *TrialService) clock() time.Time {
	return s.now().UTC().Truncate(db.TimePrecision)
}

func (s *TrialService) load(ctx context.Context, orgID string) (*domain.TrialMetadata, error) {
	key := domain.TrialMetadataKey(orgID)
	if m, ok := s.cache.Get(key); ok {
		return cloneTrial(m), nil
	}
	entry, err := s.meta.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("organization %s: %w", orgID, ErrTrialNotFound)
		}
		return nil, fmt.Errorf("loading trial metadata: %w", err)
	}
	m, err := decodeTrial(entry.Value)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, *m)
	return cloneTrial(*m), nil
}

func decodeTrial(raw []byte) (*domain.TrialMetadata, error) {
	var m domain.TrialMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding trial metadata: %w", err)
	}
	if m.FeatureUsage == nil {
		m.FeatureUsage = map[string]int{}
	}
	return &m, nil
}

func (s *TrialService) save(ctx context.Context, m *domain.TrialMetadata) error {
	key := domain.TrialMetadataKey(m.OrganizationID)
	s.cache.Remove(key)
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding trial metadata: %w", err)
	}
	if err := s.meta.Put(ctx, key, raw, s.clock()); err != nil {
		return fmt.Errorf("saving trial metadata: %w", err)
	}
	return nil
}

// cloneTrial copies the mutable parts so cached values are never aliased.
func cloneTrial(m domain.TrialMetadata) *domain.TrialMetadata {
	usage := make(map[string]int, len(m.FeatureUsage))
	for k, v := range m.FeatureUsage {
		usage[k] = v
	}
	m.FeatureUsage = usage
	m.ActiveDays = append([]string(nil), m.ActiveDays...)
	return &m
}

// InitializeTrial starts a trial now and expiring after the configured
// duration. Starting again resets the window and the usage counters.
func (s *TrialService) InitializeTrial(ctx context.Context, orgID, businessType string) (status *app.TrialStatus, err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "initialize-trial", startedAt, map[string]any{"organization_id": orgID}, &err)

	now := s.clock()
	m := &domain.TrialMetadata{
		OrganizationID: orgID,
		BusinessType:   businessType,
		Status:         domain.TrialActive,
		StartedAt:      now,
		ExpiresAt:      now.Add(s.cfg.Duration),
		FeatureUsage:   map[string]int{},
		ActiveDays:     []string{},
	}
	if err = s.save(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("trial started", zap.String("organization_id", orgID), zap.Time("expires_at", m.ExpiresAt))
	return s.status(ctx, m, now)
}

// GetTrialStatus computes the countdown, usage and eligibility of a trial.
func (s *TrialService) GetTrialStatus(ctx context.Context, orgID string) (*app.TrialStatus, error) {
	m, err := s.load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, m, s.clock())
}

func (s *TrialService) status(ctx context.Context, m *domain.TrialMetadata, now time.Time) (*app.TrialStatus, error) {
	remaining := m.Remaining(now)
	days := int(math.Ceil(remaining.Hours() / 24))
	st := &app.TrialStatus{
		OrganizationID:    m.OrganizationID,
		BusinessType:      m.BusinessType,
		Status:            m.Status,
		StartedAt:         m.StartedAt,
		ExpiresAt:         m.ExpiresAt,
		DaysRemaining:     days,
		HoursRemaining:    int(math.Floor(remaining.Hours())),
		TotalFeatureUsage: m.TotalUsage(),
	}
	st.IsActive = remaining > 0 && (m.Status == domain.TrialActive || m.Status == domain.TrialExtended)
	if remaining == 0 && m.Status == domain.TrialActive {
		st.Status = domain.TrialExpired
	}

	stats, err := s.data.StorageStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading storage stats: %w", err)
	}
	st.StorageUsedBytes = stats.UsageBytes
	st.StorageQuotaBytes = stats.QuotaBytes

	if st.EntityCount, st.TransactionCount, err = s.data.CountOrganizationRecords(ctx, m.OrganizationID); err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	st.ConversionEligible = st.TotalFeatureUsage >= eligibleUsageEvents ||
		st.EntityCount >= eligibleEntities ||
		st.TransactionCount >= eligibleTransactions
	st.Offers = GenerateConversionOffers(st.DaysRemaining, st.TotalFeatureUsage)
	return st, nil
}

// TrackFeatureUsage counts one use of a feature. A missing trial is not an
// error: the outcome reports it as not recorded.
func (s *TrialService) TrackFeatureUsage(ctx context.Context, orgID, feature string) app.Outcome {
	m, err := s.load(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrTrialNotFound) {
			return app.Outcome{Reason: "no trial"}
		}
		s.log.Warn("feature usage not recorded", zap.String("organization_id", orgID), zap.Error(err))
		return app.Outcome{Reason: "load failed", Err: err}
	}
	m.RecordUsage(feature, s.clock())
	if err := s.save(ctx, m); err != nil {
		s.log.Warn("feature usage not recorded", zap.String("organization_id", orgID), zap.Error(err))
		return app.Outcome{Reason: "save failed", Err: err}
	}
	s.metrics.FeatureUsed(feature)
	return app.Outcome{Recorded: true}
}

// GetConversionMetrics scores engagement and recommends a plan.
func (s *TrialService) GetConversionMetrics(ctx context.Context, orgID string) (*app.ConversionMetrics, error) {
	m, err := s.load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	entities, _, err := s.data.CountOrganizationRecords(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	return conversionMetrics(m, entities, s.clock()), nil
}

func conversionMetrics(m *domain.TrialMetadata, entities int, now time.Time) *app.ConversionMetrics {
	elapsed := int(now.Sub(m.StartedAt).Hours() / 24)
	if elapsed < 1 {
		elapsed = 1
	}
	total := m.TotalUsage()
	distinct := len(m.FeatureUsage)
	active := len(m.ActiveDays)

	engagement := min(100, int(math.Round(float64(total)/float64(elapsed)*10)))
	consistency := min(100.0, float64(active)/float64(elapsed)*100)
	diversity := min(100.0, float64(distinct)*10)
	probability := min(100, int(math.Round(0.4*float64(engagement)+0.3*diversity+0.3*consistency)))

	plan := app.PlanStarter
	switch {
	case total > 100:
		plan = app.PlanEnterprise
	case total > 30:
		plan = app.PlanProfessional
	}

	usage := make(map[string]int, distinct)
	for k, v := range m.FeatureUsage {
		usage[k] = v
	}

	cm := &app.ConversionMetrics{
		OrganizationID:        m.OrganizationID,
		DaysElapsed:           elapsed,
		TotalUsage:            total,
		DistinctFeatures:      distinct,
		ActiveDays:            active,
		FeatureUsage:          usage,
		EngagementScore:       engagement,
		ConsistencyScore:      int(math.Round(consistency)),
		ConversionProbability: probability,
		RecommendedPlan:       plan,
		Blockers:              []app.Blocker{},
	}
	if engagement < 30 {
		cm.Blockers = append(cm.Blockers, app.Blocker{Code: "low_engagement", Message: "Low daily engagement with the product"})
	}
	if distinct < 3 {
		cm.Blockers = append(cm.Blockers, app.Blocker{Code: "narrow_exploration", Message: "Fewer than three features explored"})
	}
	if entities == 0 {
		cm.Blockers = append(cm.Blockers, app.Blocker{Code: "no_business_data", Message: "No business data entered yet"})
	}
	if active <= 1 {
		cm.Blockers = append(cm.Blockers, app.Blocker{Code: "single_day_usage", Message: "Used on a single day only"})
	}
	return cm
}

// ConvertTrial marks an active or extended trial as converted.
func (s *TrialService) ConvertTrial(ctx context.Context, orgID string) (*app.TrialStatus, error) {
	m, err := s.load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.TrialActive && m.Status != domain.TrialExtended {
		return nil, fmt.Errorf("%w: trial is %s", domain.ErrValidation, m.Status)
	}
	now := s.clock()
	m.Status = domain.TrialConverted
	m.ConvertedAt = &now
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("trial converted", zap.String("organization_id", orgID))
	return s.status(ctx, m, now)
}

// ExtendTrial pushes the expiry back by days and marks the trial extended.
func (s *TrialService) ExtendTrial(ctx context.Context, orgID string, days int) (*app.TrialStatus, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: extension must be at least one day", domain.ErrValidation)
	}
	m, err := s.load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if m.Status == domain.TrialConverted {
		return nil, fmt.Errorf("%w: trial already converted", domain.ErrValidation)
	}
	now := s.clock()
	base := m.ExpiresAt
	if base.Before(now) {
		base = now
	}
	m.ExpiresAt = base.Add(time.Duration(days) * 24 * time.Hour)
	m.ExtendedDays += days
	m.Status = domain.TrialExtended
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("trial extended", zap.String("organization_id", orgID), zap.Int("days", days))
	return s.status(ctx, m, now)
}

// ListTrials returns the status of every trial in the metadata store, in
// organization id order.
func (s *TrialService) ListTrials(ctx context.Context) ([]*app.TrialStatus, error) {
	entries, err := s.meta.List(ctx, domain.TrialMetadataKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing trials: %w", err)
	}
	now := s.clock()
	out := make([]*app.TrialStatus, 0, len(entries))
	for _, e := range entries {
		m, err := decodeTrial(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Key, err)
		}
		st, err := s.status(ctx, m, now)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// DiscardTrial removes the trial metadata of an organization. Its records stay
// until they expire.
func (s *TrialService) DiscardTrial(ctx context.Context, orgID string) error {
	if _, err := s.load(ctx, orgID); err != nil {
		return err
	}
	key := domain.TrialMetadataKey(orgID)
	s.cache.Remove(key)
	if err := s.meta.Delete(ctx, key); err != nil {
		return fmt.Errorf("discarding trial: %w", err)
	}
	s.log.Info("trial discarded", zap.String("organization_id", orgID))
	return nil
}
