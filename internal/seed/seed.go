// Package seed installs the reference plan catalog so a fresh deployment has
// resolvable entitlements without an administrative import.
package seed

import (
	entitlementdomain "github.com/smallbiznis/congregate/internal/entitlement/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type planFeatureSeed struct {
	planID  string
	key     entitlementdomain.FeatureKey
	enabled bool
	config  datatypes.JSONMap
}

var planCatalog = []planFeatureSeed{
	{"starter", "core.people", true, datatypes.JSONMap{"directory_limit": float64(250)}},
	{"starter", "core.events", true, datatypes.JSONMap{}},
	{"starter", "comm.messaging", true, datatypes.JSONMap{"monthly_sends": float64(500)}},
	{"starter", "engage.groups", false, datatypes.JSONMap{}},
	{"starter", "engage.checkin", false, datatypes.JSONMap{}},
	{"starter", "engage.mealtrains", false, datatypes.JSONMap{}},

	{"growth", "core.people", true, datatypes.JSONMap{"directory_limit": float64(2500)}},
	{"growth", "core.events", true, datatypes.JSONMap{}},
	{"growth", "comm.messaging", true, datatypes.JSONMap{"monthly_sends": float64(10000)}},
	{"growth", "engage.groups", true, datatypes.JSONMap{}},
	{"growth", "engage.checkin", true, datatypes.JSONMap{"stations": float64(5)}},
	{"growth", "engage.mealtrains", true, datatypes.JSONMap{}},
}

// EnsurePlanCatalog inserts any missing plan feature rows. Existing rows are
// left untouched so administrative catalog edits survive restarts.
func EnsurePlanCatalog(conn *gorm.DB) error {
	for _, row := range planCatalog {
		var count int64
		if err := conn.Table("plan_features").
			Where("plan_id = ? AND feature_key = ?", row.planID, row.key).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		if err := conn.Exec(
			`INSERT INTO plan_features (plan_id, feature_key, enabled, config, created_at)
			 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
			row.planID,
			row.key,
			row.enabled,
			row.config,
		).Error; err != nil {
			return err
		}
	}
	return nil
}
