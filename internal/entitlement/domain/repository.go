package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the entitlement store accessor. The read side carries no
// policy: absence is reported as nil/empty, store failures as errors, and the
// Resolver decides what either means.
type Repository interface {
	// GetSubscription returns the tenant's subscription, or nil when the
	// tenant has none.
	GetSubscription(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*Subscription, error)
	// GetPlanDefaults returns the plan's default feature rows.
	GetPlanDefaults(ctx context.Context, db *gorm.DB, planID string) ([]PlanFeature, error)
	// GetOverrides returns the tenant's override rows.
	GetOverrides(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]FeatureOverride, error)

	UpsertOverride(ctx context.Context, db *gorm.DB, override *FeatureOverride) error
	DeleteOverride(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, key FeatureKey) (bool, error)
	UpsertSubscription(ctx context.Context, db *gorm.DB, subscription *Subscription) error
}
