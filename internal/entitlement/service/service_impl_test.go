package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/congregate/internal/entitlement/domain"
	"github.com/smallbiznis/congregate/internal/entitlement/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type invalidatorRecorder struct {
	mu      sync.Mutex
	tenants []snowflake.ID
}

func (r *invalidatorRecorder) Invalidate(ctx context.Context, tenantID snowflake.ID) {
	r.mu.Lock()
	r.tenants = append(r.tenants, tenantID)
	r.mu.Unlock()
}

func (r *invalidatorRecorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tenants)
}

func setupService(t *testing.T, node *snowflake.Node) (domain.Service, *gorm.DB, *invalidatorRecorder) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(
		&domain.Subscription{},
		&domain.PlanFeature{},
		&domain.FeatureOverride{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	recorder := &invalidatorRecorder{}
	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        repository.Provide(),
		Invalidator: recorder,
	})
	return svc, db, recorder
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func seedSubscription(t *testing.T, db *gorm.DB, tenantID snowflake.ID, planID string, status domain.SubscriptionStatus) {
	t.Helper()
	err := db.Exec(
		`INSERT INTO subscriptions (tenant_id, plan_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		tenantID, planID, status,
	).Error
	if err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
}

func seedPlanFeature(t *testing.T, db *gorm.DB, planID string, key domain.FeatureKey, enabled bool, config datatypes.JSONMap) {
	t.Helper()
	err := db.Exec(
		`INSERT INTO plan_features (plan_id, feature_key, enabled, config, created_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		planID, key, enabled, config,
	).Error
	if err != nil {
		t.Fatalf("seed plan feature: %v", err)
	}
}

func seedOverride(t *testing.T, db *gorm.DB, node *snowflake.Node, tenantID snowflake.ID, key domain.FeatureKey, enabled bool, config datatypes.JSONMap) {
	t.Helper()
	err := db.Exec(
		`INSERT INTO feature_overrides (id, tenant_id, feature_key, enabled, config, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		node.Generate(), tenantID, key, enabled, config,
	).Error
	if err != nil {
		t.Fatalf("seed override: %v", err)
	}
}

func TestResolveMergesOverridesOverDefaults(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupService(t, node)
	tenantID := node.Generate()

	seedSubscription(t, db, tenantID, "starter", domain.SubscriptionStatusActive)
	seedPlanFeature(t, db, "starter", "core.people", true, datatypes.JSONMap{"limit": float64(10), "region": "us"})
	seedPlanFeature(t, db, "starter", "engage.groups", false, datatypes.JSONMap{})
	seedOverride(t, db, node, tenantID, "core.people", true, datatypes.JSONMap{"limit": float64(25)})
	seedOverride(t, db, node, tenantID, "engage.groups", true, datatypes.JSONMap{})

	result, err := svc.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	people := result.Get("core.people")
	if !people.Enabled {
		t.Fatal("expected core.people enabled")
	}
	if people.Config["limit"] != float64(25) {
		t.Fatalf("expected override value 25, got %v", people.Config["limit"])
	}
	if people.Config["region"] != "us" {
		t.Fatalf("expected default key region to survive merge, got %v", people.Config["region"])
	}

	if !result.Enabled("engage.groups") {
		t.Fatal("expected override to enable engage.groups over the plan default")
	}
}

func TestResolveOverrideDisablesPlanFeature(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupService(t, node)
	tenantID := node.Generate()

	seedSubscription(t, db, tenantID, "growth", domain.SubscriptionStatusTrialing)
	seedPlanFeature(t, db, "growth", "comm.messaging", true, datatypes.JSONMap{"monthly_sends": float64(10000)})
	seedOverride(t, db, node, tenantID, "comm.messaging", false, datatypes.JSONMap{})

	result, err := svc.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Enabled("comm.messaging") {
		t.Fatal("expected override to disable comm.messaging despite the plan default")
	}
}

func TestResolveOverrideForKeyOutsidePlan(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupService(t, node)
	tenantID := node.Generate()

	seedSubscription(t, db, tenantID, "starter", domain.SubscriptionStatusActive)
	seedOverride(t, db, node, tenantID, "engage.mealtrains", true, datatypes.JSONMap{"trains": float64(3)})

	result, err := svc.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	entry := result.Get("engage.mealtrains")
	if !entry.Enabled {
		t.Fatal("expected override to grant a feature the plan does not carry")
	}
	if entry.Config["trains"] != float64(3) {
		t.Fatalf("expected override config, got %v", entry.Config)
	}
}

func TestResolveCanceledSubscriptionIgnoresOverrides(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupService(t, node)
	tenantID := node.Generate()

	seedSubscription(t, db, tenantID, "growth", domain.SubscriptionStatusCanceled)
	seedPlanFeature(t, db, "growth", "core.people", true, datatypes.JSONMap{})
	seedOverride(t, db, node, tenantID, "core.people", true, datatypes.JSONMap{})

	result, err := svc.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result) != 0 {
		t.Fatalf("expected empty map for canceled subscription, got %d entries", len(result))
	}
	if result.Enabled("core.people") {
		t.Fatal("expected canceled subscription to deny every feature")
	}
}

func TestResolveMissingSubscription(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupService(t, node)
	tenantID := node.Generate()

	seedOverride(t, db, node, tenantID, "core.people", true, datatypes.JSONMap{})

	result, err := svc.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result) != 0 {
		t.Fatalf("expected empty map without a subscription, got %d entries", len(result))
	}
}

func TestResolveZeroTenant(t *testing.T) {
	node := mustNode(t)
	svc, _, _ := setupService(t, node)

	_, err := svc.Resolve(context.Background(), 0)
	if !errors.Is(err, domain.ErrInvalidTenant) {
		t.Fatalf("expected ErrInvalidTenant, got %v", err)
	}
}

func TestResolveIdempotent(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupService(t, node)
	tenantID := node.Generate()

	seedSubscription(t, db, tenantID, "starter", domain.SubscriptionStatusActive)
	seedPlanFeature(t, db, "starter", "core.events", true, datatypes.JSONMap{"calendars": float64(2)})
	seedOverride(t, db, node, tenantID, "core.events", true, datatypes.JSONMap{"calendars": float64(4)})

	first, err := svc.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve first: %v", err)
	}
	second, err := svc.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve second: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected identical maps, got %d vs %d entries", len(first), len(second))
	}
	for key, entry := range first {
		other := second.Get(key)
		if entry.Enabled != other.Enabled {
			t.Fatalf("expected stable enabled state for %s", key)
		}
		if entry.Config["calendars"] != other.Config["calendars"] {
			t.Fatalf("expected stable config for %s", key)
		}
	}
}

func TestResolveDuplicateOverrideRows(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupService(t, node)
	tenantID := node.Generate()

	seedSubscription(t, db, tenantID, "starter", domain.SubscriptionStatusActive)
	// Two rows for the same key can only appear if the store lost its unique
	// index; resolution must refuse rather than pick one.
	seedOverride(t, db, node, tenantID, "core.people", true, datatypes.JSONMap{})
	seedOverride(t, db, node, tenantID, "core.people", false, datatypes.JSONMap{})

	_, err := svc.Resolve(context.Background(), tenantID)
	if !errors.Is(err, domain.ErrOverrideConflict) {
		t.Fatalf("expected ErrOverrideConflict, got %v", err)
	}
}

func TestSetOverrideUpsertsAndInvalidates(t *testing.T) {
	node := mustNode(t)
	svc, db, recorder := setupService(t, node)
	tenantID := node.Generate()

	seedSubscription(t, db, tenantID, "starter", domain.SubscriptionStatusActive)

	_, err := svc.SetOverride(context.Background(), domain.SetOverrideRequest{
		TenantID:   tenantID,
		FeatureKey: "engage.checkin",
		Enabled:    true,
		Config:     map[string]any{"stations": float64(2)},
	})
	if err != nil {
		t.Fatalf("set override: %v", err)
	}
	_, err = svc.SetOverride(context.Background(), domain.SetOverrideRequest{
		TenantID:   tenantID,
		FeatureKey: "engage.checkin",
		Enabled:    true,
		Config:     map[string]any{"stations": float64(8)},
	})
	if err != nil {
		t.Fatalf("set override again: %v", err)
	}

	var count int64
	if err := db.Table("feature_overrides").Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		t.Fatalf("count overrides: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single override row after upsert, got %d", count)
	}

	result, err := svc.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Get("engage.checkin").Config["stations"] != float64(8) {
		t.Fatalf("expected latest override config, got %v", result.Get("engage.checkin").Config)
	}

	if recorder.Calls() != 2 {
		t.Fatalf("expected invalidation per write, got %d", recorder.Calls())
	}
}

func TestRemoveOverride(t *testing.T) {
	node := mustNode(t)
	svc, db, recorder := setupService(t, node)
	tenantID := node.Generate()

	seedOverride(t, db, node, tenantID, "engage.groups", true, datatypes.JSONMap{})

	if err := svc.RemoveOverride(context.Background(), tenantID, "engage.groups"); err != nil {
		t.Fatalf("remove override: %v", err)
	}
	if recorder.Calls() != 1 {
		t.Fatalf("expected invalidation after remove, got %d", recorder.Calls())
	}

	err := svc.RemoveOverride(context.Background(), tenantID, "engage.groups")
	if !errors.Is(err, domain.ErrOverrideNotFound) {
		t.Fatalf("expected ErrOverrideNotFound, got %v", err)
	}
	if recorder.Calls() != 1 {
		t.Fatal("expected no invalidation for a missing override")
	}
}

func TestSetSubscriptionNormalizesStatus(t *testing.T) {
	node := mustNode(t)
	svc, _, recorder := setupService(t, node)
	tenantID := node.Generate()

	subscription, err := svc.SetSubscription(context.Background(), domain.SetSubscriptionRequest{
		TenantID: tenantID,
		PlanID:   "growth",
		Status:   "active",
	})
	if err != nil {
		t.Fatalf("set subscription: %v", err)
	}
	if subscription.Status != domain.SubscriptionStatusActive {
		t.Fatalf("expected normalized status, got %s", subscription.Status)
	}
	if recorder.Calls() != 1 {
		t.Fatalf("expected invalidation after subscription change, got %d", recorder.Calls())
	}

	_, err = svc.SetSubscription(context.Background(), domain.SetSubscriptionRequest{
		TenantID: tenantID,
		PlanID:   "growth",
		Status:   "paused",
	})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestDowngradeDropsPlanFeatures(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupService(t, node)
	tenantID := node.Generate()

	seedPlanFeature(t, db, "growth", "engage.groups", true, datatypes.JSONMap{})
	seedPlanFeature(t, db, "starter", "engage.groups", false, datatypes.JSONMap{})
	seedSubscription(t, db, tenantID, "growth", domain.SubscriptionStatusActive)

	before, err := svc.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve before: %v", err)
	}
	if !before.Enabled("engage.groups") {
		t.Fatal("expected growth plan to enable engage.groups")
	}

	if _, err := svc.SetSubscription(context.Background(), domain.SetSubscriptionRequest{
		TenantID: tenantID,
		PlanID:   "starter",
		Status:   domain.SubscriptionStatusActive,
	}); err != nil {
		t.Fatalf("downgrade: %v", err)
	}

	after, err := svc.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve after: %v", err)
	}
	if after.Enabled("engage.groups") {
		t.Fatal("expected starter plan to deny engage.groups after downgrade")
	}
}
