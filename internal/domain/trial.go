package domain

import (
	"sort"
	"time"
)

// TrialMetadataKeyPrefix is prepended to the organization id to form the
// metadata key of a trial. External readers of the metadata store rely on it.
const TrialMetadataKeyPrefix = "trial_"

// TrialMetadataKey returns the metadata key for an organization's trial.
func TrialMetadataKey(organizationID string) string {
	return TrialMetadataKeyPrefix + organizationID
}

// TrialMetadata is persisted as a JSON blob in the metadata store.
type TrialMetadata struct {
	OrganizationID string         `json:"organization_id"`
	BusinessType   string         `json:"business_type"`
	Status         TrialState     `json:"status"`
	StartedAt      time.Time      `json:"started_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	FeatureUsage   map[string]int `json:"feature_usage"`
	ActiveDays     []string       `json:"active_days"`
	LastActivityAt *time.Time     `json:"last_activity_at,omitempty"`
	ConvertedAt    *time.Time     `json:"converted_at,omitempty"`
	ExtendedDays   int            `json:"extended_days,omitempty"`
}

// TotalUsage sums every feature counter.
func (m *TrialMetadata) TotalUsage() int {
	total := 0
	for _, n := range m.FeatureUsage {
		total += n
	}
	return total
}

// Remaining returns the time left until expiry, never negative.
func (m *TrialMetadata) Remaining(now time.Time) time.Duration {
	d := m.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RecordUsage increments a feature counter and marks the day as active.
func (m *TrialMetadata) RecordUsage(feature string, now time.Time) {
	if m.FeatureUsage == nil {
		m.FeatureUsage = make(map[string]int)
	}
	m.FeatureUsage[feature]++
	day := now.UTC().Format("2006-01-02")
	i := sort.SearchStrings(m.ActiveDays, day)
	if i == len(m.ActiveDays) || m.ActiveDays[i] != day {
		m.ActiveDays = append(m.ActiveDays, "")
		copy(m.ActiveDays[i+1:], m.ActiveDays[i:])
		m.ActiveDays[i] = day
	}
	t := now.UTC()
	m.LastActivityAt = &t
}
