// Package guard implements the enforcement pipeline shared by every layer:
// resolve principal, resolve tenant membership, resolve entitlements through
// the cache, then let each call site present success or failure its own way.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/congregate/internal/cache"
	entitlementdomain "github.com/smallbiznis/congregate/internal/entitlement/domain"
	identitydomain "github.com/smallbiznis/congregate/internal/identity/domain"
	obsmetrics "github.com/smallbiznis/congregate/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrAuthenticationRequired = errors.New("authentication_required")
	ErrNoTenantMembership     = errors.New("no_tenant_membership")
)

// FeatureDisabledError is returned when a required feature is absent or
// disabled for the tenant. The key is attached for caller-side messaging.
type FeatureDisabledError struct {
	Key entitlementdomain.FeatureKey
}

func (e *FeatureDisabledError) Error() string {
	return fmt.Sprintf("feature %q is not enabled", e.Key)
}

// Access is what a successful check yields: the caller's identity, its
// tenant, and the tenant's resolved entitlements, so a gated mutation does
// not re-resolve any of the three.
type Access struct {
	Principal    identitydomain.Principal
	Tenant       identitydomain.TenantContext
	Entitlements entitlementdomain.EntitlementMap
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Identity identitydomain.Service
	Resolver entitlementdomain.Service
	Cache    *cache.EntitlementCache    `optional:"true"`
	Metrics  *obsmetrics.Metrics        `optional:"true"`
}

type Guard struct {
	log      *zap.Logger
	identity identitydomain.Service
	resolver entitlementdomain.Service
	cache    *cache.EntitlementCache
	metrics  *obsmetrics.Metrics
}

func New(p Params) *Guard {
	return &Guard{
		log:      p.Log.Named("guard"),
		identity: p.Identity,
		resolver: p.Resolver,
		cache:    p.Cache,
		metrics:  p.Metrics,
	}
}

// ResolveAccess runs the common pipeline with no feature requirement. The
// error discriminates the failure mode: ErrAuthenticationRequired,
// ErrNoTenantMembership, or a store error surfaced as-is.
func (g *Guard) ResolveAccess(ctx context.Context) (Access, error) {
	principal, ok := identitydomain.PrincipalFromContext(ctx)
	if !ok {
		g.metrics.RecordDenial(ctx, "unauthenticated")
		return Access{}, ErrAuthenticationRequired
	}

	tenant, err := g.identity.MembershipFor(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, identitydomain.ErrNoMembership) {
			g.metrics.RecordDenial(ctx, "no_membership")
			return Access{}, ErrNoTenantMembership
		}
		return Access{}, err
	}

	entitlements, err := g.entitlementsFor(ctx, tenant.TenantID)
	if err != nil {
		// A store failure is denied downstream but must stay observable as
		// an infrastructure fault, not a normal denial.
		g.log.Error("entitlement resolution failed",
			zap.String("tenant_id", tenant.TenantID.String()),
			zap.Error(err),
		)
		return Access{}, err
	}

	return Access{Principal: principal, Tenant: tenant, Entitlements: entitlements}, nil
}

// RequireFeature authenticates, resolves the tenant, and authorizes the
// feature in one call. It is the only real security boundary; route and
// visibility checks are conveniences layered on the same pipeline.
func (g *Guard) RequireFeature(ctx context.Context, key entitlementdomain.FeatureKey) (Access, error) {
	return g.RequireAllFeatures(ctx, key)
}

// RequireAllFeatures checks every key and fails on the first one missing; a
// multi-feature mutation never proceeds partially authorized.
func (g *Guard) RequireAllFeatures(ctx context.Context, keys ...entitlementdomain.FeatureKey) (Access, error) {
	access, err := g.ResolveAccess(ctx)
	if err != nil {
		return Access{}, err
	}

	for _, key := range keys {
		if !access.Entitlements.Enabled(key) {
			g.metrics.RecordDenial(ctx, "feature_disabled")
			return Access{}, &FeatureDisabledError{Key: key}
		}
	}
	return access, nil
}

// Snapshot serializes the caller's resolved entitlements for the UI layer.
func (g *Guard) Snapshot(ctx context.Context) (entitlementdomain.Snapshot, Access, error) {
	access, err := g.ResolveAccess(ctx)
	if err != nil {
		return nil, Access{}, err
	}
	return access.Entitlements.Snapshot(), access, nil
}

func (g *Guard) entitlementsFor(ctx context.Context, tenantID snowflake.ID) (entitlementdomain.EntitlementMap, error) {
	if entitlements, ok := g.cache.Get(tenantID); ok {
		g.metrics.RecordCacheHit(ctx)
		return entitlements, nil
	}
	g.metrics.RecordCacheMiss(ctx)

	entitlements, err := g.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	g.cache.Put(tenantID, entitlements)
	return entitlements, nil
}
