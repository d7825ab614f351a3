package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/congregate/internal/cache"
	"github.com/smallbiznis/congregate/internal/clock"
	"github.com/smallbiznis/congregate/internal/config"
	"github.com/smallbiznis/congregate/internal/entitlement"
	"github.com/smallbiznis/congregate/internal/guard"
	"github.com/smallbiznis/congregate/internal/identity"
	"github.com/smallbiznis/congregate/internal/invalidation"
	"github.com/smallbiznis/congregate/internal/migration"
	"github.com/smallbiznis/congregate/internal/observability"
	"github.com/smallbiznis/congregate/internal/server"
	"github.com/smallbiznis/congregate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		cache.Module,
		invalidation.Module,
		identity.Module,
		entitlement.Module,
		guard.Module,

		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
