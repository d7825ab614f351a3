package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/congregate/internal/entitlement/domain"
	pkgdb "github.com/smallbiznis/congregate/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) GetSubscription(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).
		Table("subscriptions").
		Where("tenant_id = ?", tenantID).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) GetPlanDefaults(ctx context.Context, db *gorm.DB, planID string) ([]domain.PlanFeature, error) {
	var rows []domain.PlanFeature
	err := db.WithContext(ctx).Raw(
		`SELECT plan_id, feature_key, enabled, config, created_at
		   FROM plan_features
		  WHERE plan_id = ?
		  ORDER BY feature_key ASC`,
		planID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) GetOverrides(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]domain.FeatureOverride, error) {
	var rows []domain.FeatureOverride
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, feature_key, enabled, config, created_at, updated_at
		   FROM feature_overrides
		  WHERE tenant_id = ?
		  ORDER BY feature_key ASC`,
		tenantID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpsertOverride(ctx context.Context, db *gorm.DB, override *domain.FeatureOverride) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE feature_overrides
		    SET enabled = ?, config = ?, updated_at = ?
		  WHERE tenant_id = ? AND feature_key = ?`,
		override.Enabled,
		override.Config,
		override.UpdatedAt,
		override.TenantID,
		override.FeatureKey,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	err := db.WithContext(ctx).Exec(
		`INSERT INTO feature_overrides (id, tenant_id, feature_key, enabled, config, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		override.ID,
		override.TenantID,
		override.FeatureKey,
		override.Enabled,
		override.Config,
		override.CreatedAt,
		override.UpdatedAt,
	).Error
	if pkgdb.IsDuplicateKeyErr(err) {
		// Lost the insert race against a concurrent writer for the same
		// (tenant, feature key); the row exists, apply as an update.
		return r.updateOverride(ctx, db, override)
	}
	return err
}

func (r *repo) updateOverride(ctx context.Context, db *gorm.DB, override *domain.FeatureOverride) error {
	return db.WithContext(ctx).Exec(
		`UPDATE feature_overrides
		    SET enabled = ?, config = ?, updated_at = ?
		  WHERE tenant_id = ? AND feature_key = ?`,
		override.Enabled,
		override.Config,
		override.UpdatedAt,
		override.TenantID,
		override.FeatureKey,
	).Error
}

func (r *repo) DeleteOverride(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, key domain.FeatureKey) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM feature_overrides WHERE tenant_id = ? AND feature_key = ?`,
		tenantID,
		key,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) UpsertSubscription(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		    SET plan_id = ?, status = ?, updated_at = ?
		  WHERE tenant_id = ?`,
		subscription.PlanID,
		subscription.Status,
		subscription.UpdatedAt,
		subscription.TenantID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (tenant_id, plan_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		subscription.TenantID,
		subscription.PlanID,
		subscription.Status,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}
