package migration

import (
	"github.com/smallbiznis/congregate/internal/config"
	entitlementdomain "github.com/smallbiznis/congregate/internal/entitlement/domain"
	identitydomain "github.com/smallbiznis/congregate/internal/identity/domain"
	"github.com/smallbiznis/congregate/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// The versioned migration driver targets postgres; other
			// dialects (local sqlite, mysql) get the model-derived schema.
			if err := conn.AutoMigrate(
				&identitydomain.Tenant{},
				&identitydomain.User{},
				&identitydomain.Membership{},
				&identitydomain.Session{},
				&entitlementdomain.Subscription{},
				&entitlementdomain.PlanFeature{},
				&entitlementdomain.FeatureOverride{},
			); err != nil {
				return err
			}
		}

		return seed.EnsurePlanCatalog(conn)
	}),
)
