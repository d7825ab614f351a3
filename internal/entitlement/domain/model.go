// Package domain contains the entitlement data model: the per-tenant
// subscription, the plan feature catalog, tenant overrides, and the resolved
// entitlement map consumed by every enforcement layer.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// FeatureKey identifies one gated capability, e.g. "core.people" or
// "engage.groups". Keys are namespaced, case-sensitive, and stable.
type FeatureKey string

func (k FeatureKey) String() string { return string(k) }

// FeatureEntry is the resolved state of one feature for one tenant.
type FeatureEntry struct {
	Enabled bool           `json:"enabled"`
	Config  map[string]any `json:"config"`
}

// EntitlementMap is the fully resolved feature state for a tenant. It is
// derived, never persisted, and only ever produced whole.
type EntitlementMap map[FeatureKey]FeatureEntry

// Get returns the entry for key, or a disabled zero entry when absent.
// Lookups are total: a missing key means the feature is off, not an error.
func (m EntitlementMap) Get(key FeatureKey) FeatureEntry {
	if entry, ok := m[key]; ok {
		return entry
	}
	return FeatureEntry{Enabled: false, Config: map[string]any{}}
}

// Enabled reports whether key resolves to an enabled feature.
func (m EntitlementMap) Enabled(key FeatureKey) bool {
	return m.Get(key).Enabled
}

// SubscriptionStatus represents lifecycle states for a tenant subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusTrialing SubscriptionStatus = "TRIALING"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

// Entitled reports whether the status grants access to plan features.
// Anything other than an active or trialing subscription resolves to no
// entitlements at all, overrides included.
func (s SubscriptionStatus) Entitled() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// Subscription links a tenant to its plan.
type Subscription struct {
	TenantID  snowflake.ID       `gorm:"primaryKey"`
	PlanID    string             `gorm:"type:text;not null"`
	Status    SubscriptionStatus `gorm:"type:text;not null"`
	CreatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// PlanFeature is one row of a plan's default feature set. Reference data,
// changed only by administrative catalog updates.
type PlanFeature struct {
	PlanID     string            `gorm:"primaryKey;type:text"`
	FeatureKey FeatureKey        `gorm:"primaryKey;type:text"`
	Enabled    bool              `gorm:"not null;default:false"`
	Config     datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PlanFeature) TableName() string { return "plan_features" }

// FeatureOverride is a per-tenant deviation from plan defaults. At most one
// row may exist per (tenant, feature key); it is authoritative on Enabled and
// shallow-merged over the plan default's config.
type FeatureOverride struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	TenantID   snowflake.ID      `gorm:"not null;index:ux_feature_overrides_tenant_key,priority:1"`
	FeatureKey FeatureKey        `gorm:"type:text;not null;index:ux_feature_overrides_tenant_key,priority:2"`
	Enabled    bool              `gorm:"not null"`
	Config     datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FeatureOverride) TableName() string { return "feature_overrides" }
