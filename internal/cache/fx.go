package cache

import (
	"github.com/smallbiznis/congregate/internal/clock"
	"github.com/smallbiznis/congregate/internal/config"
	"go.uber.org/fx"
)

func provideEntitlementCache(clk clock.Clock, cfg config.Config) *EntitlementCache {
	return NewEntitlementCache(clk, cfg.EntitlementCacheTTL)
}

var Module = fx.Module("cache",
	fx.Provide(provideEntitlementCache),
)
