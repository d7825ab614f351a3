// Package invalidation propagates entitlement cache invalidations across
// process boundaries. A write invalidates the local cache immediately and
// publishes the tenant id on a redis channel; peer instances subscribe and
// drop their own entries. Without redis the cache TTL remains the only bound
// on staleness, which callers already tolerate.
package invalidation

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/congregate/internal/cache"
	"go.uber.org/zap"
)

const Channel = "congregate:entitlement:invalidate"

// Bus fans entitlement invalidations out to the local cache and, when a redis
// client is configured, to peer instances. A nil client degrades to
// local-only invalidation.
type Bus struct {
	client *redis.Client
	cache  *cache.EntitlementCache
	log    *zap.Logger
}

func NewBus(client *redis.Client, entitlements *cache.EntitlementCache, log *zap.Logger) *Bus {
	return &Bus{
		client: client,
		cache:  entitlements,
		log:    log.Named("invalidation"),
	}
}

// Invalidate drops the tenant's cached entitlements locally and tells peers
// to do the same. Publish failures are logged, not returned: the local drop
// already happened and the TTL bounds peer staleness.
func (b *Bus) Invalidate(ctx context.Context, tenantID snowflake.ID) {
	if b == nil || tenantID == 0 {
		return
	}
	b.cache.Invalidate(tenantID)

	if b.client == nil {
		return
	}
	if err := b.client.Publish(ctx, Channel, tenantID.String()).Err(); err != nil {
		b.log.Warn("publish invalidation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}

// Listen consumes peer invalidations until ctx is canceled.
func (b *Bus) Listen(ctx context.Context) {
	if b == nil || b.client == nil {
		return
	}

	pubsub := b.client.Subscribe(ctx, Channel)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			tenantID, err := snowflake.ParseString(strings.TrimSpace(msg.Payload))
			if err != nil || tenantID == 0 {
				b.log.Warn("ignoring malformed invalidation payload", zap.String("payload", msg.Payload))
				continue
			}
			b.cache.Invalidate(tenantID)
		}
	}
}
