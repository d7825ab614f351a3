package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/congregate/internal/clock"
	"github.com/smallbiznis/congregate/internal/entitlement/domain"
)

const DefaultEntitlementTTL = 30 * time.Second

// EntitlementCache memoizes resolved entitlement maps per tenant. It is a
// pure optimization in front of the resolver: a miss, an expired entry, or a
// nil cache all mean "resolve again". Concurrent misses for one tenant may
// each resolve and overwrite; last write wins.
//
// Invalidate only affects this process. Peer instances learn of
// administrative changes through the invalidation channel or, failing that,
// through TTL expiry.
type EntitlementCache struct {
	entries Cache[snowflake.ID, domain.EntitlementMap]
	ttl     time.Duration
}

// NewEntitlementCache returns a per-process entitlement cache. A ttl of zero
// falls back to DefaultEntitlementTTL.
func NewEntitlementCache(clk clock.Clock, ttl time.Duration) *EntitlementCache {
	if ttl <= 0 {
		ttl = DefaultEntitlementTTL
	}
	return &EntitlementCache{
		entries: NewTTLCache[snowflake.ID, domain.EntitlementMap](clk),
		ttl:     ttl,
	}
}

func (c *EntitlementCache) Get(tenantID snowflake.ID) (domain.EntitlementMap, bool) {
	if c == nil || tenantID == 0 {
		return nil, false
	}
	return c.entries.Get(tenantID)
}

func (c *EntitlementCache) Put(tenantID snowflake.ID, entitlements domain.EntitlementMap) {
	if c == nil || tenantID == 0 || entitlements == nil {
		return
	}
	c.entries.Set(tenantID, entitlements, c.ttl)
}

func (c *EntitlementCache) Invalidate(tenantID snowflake.ID) {
	if c == nil || tenantID == 0 {
		return
	}
	c.entries.Delete(tenantID)
}
