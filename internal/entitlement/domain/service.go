package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type SetOverrideRequest struct {
	TenantID   snowflake.ID
	FeatureKey FeatureKey
	Enabled    bool
	Config     map[string]any
}

type SetSubscriptionRequest struct {
	TenantID snowflake.ID
	PlanID   string
	Status   SubscriptionStatus
}

// Service resolves entitlements and applies administrative changes to the
// facts they are derived from.
type Service interface {
	// Resolve merges subscription, plan defaults, and tenant overrides into
	// the tenant's entitlement map. The map is produced whole; a tenant with
	// no subscription or a canceled one resolves to an empty map before
	// overrides are even read.
	Resolve(ctx context.Context, tenantID snowflake.ID) (EntitlementMap, error)

	SetOverride(ctx context.Context, req SetOverrideRequest) (FeatureOverride, error)
	RemoveOverride(ctx context.Context, tenantID snowflake.ID, key FeatureKey) error
	SetSubscription(ctx context.Context, req SetSubscriptionRequest) (Subscription, error)
}

// Invalidator drops cached entitlement state for a tenant after an
// administrative write, locally and on peer instances where a channel exists.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID snowflake.ID)
}

var (
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidFeatureKey  = errors.New("invalid_feature_key")
	ErrInvalidPlan        = errors.New("invalid_plan")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrOverrideNotFound   = errors.New("override_not_found")
	// ErrOverrideConflict signals more than one override row for the same
	// (tenant, feature key). The store layout forbids it; resolution refuses
	// to pick one silently.
	ErrOverrideConflict = errors.New("override_conflict")
)
