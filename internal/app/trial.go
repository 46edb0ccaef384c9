package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

type PlanTier string

const (
	PlanStarter      PlanTier = "starter"
	PlanProfessional PlanTier = "professional"
	PlanEnterprise   PlanTier = "enterprise"
)

type OfferKind string

const (
	OfferUrgency    OfferKind = "urgency"
	OfferStandard   OfferKind = "standard"
	OfferEnterprise OfferKind = "enterprise"
)

// ConversionOffer is pure presentation data.
type ConversionOffer struct {
	ID              string          `json:"id"`
	Kind            OfferKind       `json:"kind"`
	Plan            PlanTier        `json:"plan"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	MonthlyPrice    decimal.Decimal `json:"monthly_price"`
	DiscountPercent int             `json:"discount_percent,omitempty"`
	OfferPrice      decimal.Decimal `json:"offer_price"`
	Features        []string        `json:"features"`
	CTA             string          `json:"cta"`
	Urgent          bool            `json:"urgent,omitempty"`
}

type TrialStatus struct {
	OrganizationID     string            `json:"organization_id"`
	BusinessType       string            `json:"business_type"`
	Status             domain.TrialState `json:"status"`
	StartedAt          time.Time         `json:"started_at"`
	ExpiresAt          time.Time         `json:"expires_at"`
	DaysRemaining      int               `json:"days_remaining"`
	HoursRemaining     int               `json:"hours_remaining"`
	IsActive           bool              `json:"is_active"`
	StorageUsedBytes   int64             `json:"storage_used_bytes"`
	StorageQuotaBytes  int64             `json:"storage_quota_bytes"`
	EntityCount        int               `json:"entity_count"`
	TransactionCount   int               `json:"transaction_count"`
	TotalFeatureUsage  int               `json:"total_feature_usage"`
	ConversionEligible bool              `json:"conversion_eligible"`
	Offers             []ConversionOffer `json:"offers"`
}

type Blocker struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ConversionMetrics struct {
	OrganizationID        string         `json:"organization_id"`
	DaysElapsed           int            `json:"days_elapsed"`
	TotalUsage            int            `json:"total_usage"`
	DistinctFeatures      int            `json:"distinct_features"`
	ActiveDays            int            `json:"active_days"`
	FeatureUsage          map[string]int `json:"feature_usage"`
	EngagementScore       int            `json:"engagement_score"`
	ConsistencyScore      int            `json:"consistency_score"`
	ConversionProbability int            `json:"conversion_probability"`
	RecommendedPlan       PlanTier       `json:"recommended_plan"`
	Blockers              []Blocker      `json:"blockers"`
}

// Outcome reports the result of a best-effort operation the caller may
// choose to ignore.
type Outcome struct {
	Recorded bool
	Reason   string
	Err      error
}
