package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/congregate/internal/entitlement/domain"
	obsmetrics "github.com/smallbiznis/congregate/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Invalidator domain.Invalidator   `optional:"true"`
	Metrics     *obsmetrics.Metrics  `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	invalidator domain.Invalidator
	metrics     *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("entitlement.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		invalidator: p.Invalidator,
		metrics:     p.Metrics,
	}
}

// Resolve merges the three entitlement facts under a strict precedence rule:
// no subscription or a canceled one short-circuits to an empty map, plan
// defaults seed the result, and overrides replace Enabled wholesale while
// shallow-merging config over the default's config.
func (s *Service) Resolve(ctx context.Context, tenantID snowflake.ID) (domain.EntitlementMap, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	subscription, err := s.repo.GetSubscription(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if subscription == nil || !subscription.Status.Entitled() {
		// Overrides are deliberately not fetched here; they can never
		// resurrect access for a lapsed subscription.
		s.metrics.RecordResolution(ctx, "unentitled")
		return domain.EntitlementMap{}, nil
	}

	var (
		defaults  []domain.PlanFeature
		overrides []domain.FeatureOverride
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		defaults, err = s.repo.GetPlanDefaults(gctx, s.db, subscription.PlanID)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = s.repo.GetOverrides(gctx, s.db, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(domain.EntitlementMap, len(defaults))
	for _, row := range defaults {
		result[row.FeatureKey] = domain.FeatureEntry{
			Enabled: row.Enabled,
			Config:  cloneConfig(row.Config),
		}
	}

	seen := make(map[domain.FeatureKey]struct{}, len(overrides))
	for _, override := range overrides {
		if _, dup := seen[override.FeatureKey]; dup {
			s.log.Error("duplicate override rows for feature key",
				zap.String("tenant_id", tenantID.String()),
				zap.String("feature_key", override.FeatureKey.String()),
			)
			return nil, domain.ErrOverrideConflict
		}
		seen[override.FeatureKey] = struct{}{}

		merged := cloneConfig(datatypes.JSONMap(result.Get(override.FeatureKey).Config))
		for key, value := range override.Config {
			merged[key] = value
		}
		result[override.FeatureKey] = domain.FeatureEntry{
			Enabled: override.Enabled,
			Config:  merged,
		}
	}

	s.metrics.RecordResolution(ctx, "resolved")
	return result, nil
}

func (s *Service) SetOverride(ctx context.Context, req domain.SetOverrideRequest) (domain.FeatureOverride, error) {
	if req.TenantID == 0 {
		return domain.FeatureOverride{}, domain.ErrInvalidTenant
	}
	key := domain.FeatureKey(strings.TrimSpace(req.FeatureKey.String()))
	if key == "" {
		return domain.FeatureOverride{}, domain.ErrInvalidFeatureKey
	}

	now := time.Now().UTC()
	override := domain.FeatureOverride{
		ID:         s.genID.Generate(),
		TenantID:   req.TenantID,
		FeatureKey: key,
		Enabled:    req.Enabled,
		Config:     datatypes.JSONMap(req.Config),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if override.Config == nil {
		override.Config = datatypes.JSONMap{}
	}

	if err := s.repo.UpsertOverride(ctx, s.db, &override); err != nil {
		return domain.FeatureOverride{}, err
	}

	s.invalidate(ctx, req.TenantID)
	return override, nil
}

func (s *Service) RemoveOverride(ctx context.Context, tenantID snowflake.ID, key domain.FeatureKey) error {
	if tenantID == 0 {
		return domain.ErrInvalidTenant
	}
	key = domain.FeatureKey(strings.TrimSpace(key.String()))
	if key == "" {
		return domain.ErrInvalidFeatureKey
	}

	deleted, err := s.repo.DeleteOverride(ctx, s.db, tenantID, key)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrOverrideNotFound
	}

	s.invalidate(ctx, tenantID)
	return nil
}

func (s *Service) SetSubscription(ctx context.Context, req domain.SetSubscriptionRequest) (domain.Subscription, error) {
	if req.TenantID == 0 {
		return domain.Subscription{}, domain.ErrInvalidTenant
	}
	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		return domain.Subscription{}, domain.ErrInvalidPlan
	}
	status := domain.SubscriptionStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	switch status {
	case domain.SubscriptionStatusActive, domain.SubscriptionStatusTrialing, domain.SubscriptionStatusCanceled:
	default:
		return domain.Subscription{}, domain.ErrInvalidStatus
	}

	now := time.Now().UTC()
	subscription := domain.Subscription{
		TenantID:  req.TenantID,
		PlanID:    planID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertSubscription(ctx, s.db, &subscription); err != nil {
		return domain.Subscription{}, err
	}

	s.invalidate(ctx, req.TenantID)
	return subscription, nil
}

func (s *Service) invalidate(ctx context.Context, tenantID snowflake.ID) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.Invalidate(ctx, tenantID)
}

func cloneConfig(config datatypes.JSONMap) map[string]any {
	out := make(map[string]any, len(config))
	for key, value := range config {
		out[key] = value
	}
	return out
}
