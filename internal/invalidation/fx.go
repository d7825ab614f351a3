package invalidation

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/congregate/internal/config"
	entitlementdomain "github.com/smallbiznis/congregate/internal/entitlement/domain"
	"go.uber.org/fx"
)

func provideRedis(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
	})
}

func provideInvalidator(bus *Bus) entitlementdomain.Invalidator {
	return bus
}

func registerSubscriber(lc fx.Lifecycle, bus *Bus) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go bus.Listen(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

var Module = fx.Module("invalidation",
	fx.Provide(provideRedis),
	fx.Provide(NewBus),
	fx.Provide(provideInvalidator),
	fx.Invoke(registerSubscriber),
)
