package cache

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/congregate/internal/clock"
	"github.com/smallbiznis/congregate/internal/entitlement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTenant(t *testing.T) snowflake.ID {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node.Generate()
}

func TestEntitlementCachePutGet(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cache := NewEntitlementCache(clk, 30*time.Second)
	tenantID := testTenant(t)

	entitlements := domain.EntitlementMap{
		"core.people": {Enabled: true, Config: map[string]any{"limit": float64(250)}},
	}
	cache.Put(tenantID, entitlements)

	got, ok := cache.Get(tenantID)
	require.True(t, ok)
	assert.True(t, got.Enabled("core.people"))
}

func TestEntitlementCacheExpiry(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cache := NewEntitlementCache(clk, 30*time.Second)
	tenantID := testTenant(t)

	cache.Put(tenantID, domain.EntitlementMap{"core.people": {Enabled: true}})

	clk.Advance(29 * time.Second)
	_, ok := cache.Get(tenantID)
	assert.True(t, ok, "entry should survive within the TTL")

	clk.Advance(time.Second)
	_, ok = cache.Get(tenantID)
	assert.False(t, ok, "entry should expire at the TTL boundary")
}

func TestEntitlementCacheInvalidateWithinTTL(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cache := NewEntitlementCache(clk, 30*time.Second)
	tenantID := testTenant(t)

	cache.Put(tenantID, domain.EntitlementMap{"core.people": {Enabled: true}})
	cache.Invalidate(tenantID)

	_, ok := cache.Get(tenantID)
	assert.False(t, ok, "invalidation should not wait for expiry")
}

func TestEntitlementCacheNilSafety(t *testing.T) {
	var cache *EntitlementCache
	tenantID := testTenant(t)

	cache.Put(tenantID, domain.EntitlementMap{})
	cache.Invalidate(tenantID)
	_, ok := cache.Get(tenantID)
	assert.False(t, ok)
}

func TestEntitlementCacheIgnoresZeroTenant(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cache := NewEntitlementCache(clk, 30*time.Second)

	cache.Put(0, domain.EntitlementMap{"core.people": {Enabled: true}})
	_, ok := cache.Get(0)
	assert.False(t, ok)
}

func TestTTLCacheIndependentEntries(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ttlCache := NewTTLCache[string, int](clk)

	ttlCache.Set("short", 1, 10*time.Second)
	ttlCache.Set("long", 2, time.Minute)

	clk.Advance(30 * time.Second)

	_, ok := ttlCache.Get("short")
	assert.False(t, ok)
	got, ok := ttlCache.Get("long")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}
