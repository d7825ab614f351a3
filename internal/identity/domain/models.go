// Package domain contains persistence models and contracts for users,
// sessions, and tenant memberships.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is a membership role inside a tenant. The entitlement engine passes it
// through to callers; it applies no role policy itself.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleMember Role = "member"
)

// User is an authenticated account, possibly belonging to several tenants.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Email        string       `gorm:"type:text;not null;uniqueIndex"`
	DisplayName  string       `gorm:"type:text;not null"`
	PasswordHash string       `gorm:"type:text;not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Tenant is an isolated church organization; all entitlement data is scoped
// to one.
type Tenant struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Membership links a user to a tenant with a role.
type Membership struct {
	TenantID  snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"primaryKey"`
	Role      Role         `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "memberships" }

// Session is a server-side session record referenced by the auth cookie.
type Session struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"not null;index"`
	Token     string       `gorm:"type:text;not null;uniqueIndex"`
	ExpiresAt time.Time    `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Principal is the resolved identity behind a request.
type Principal struct {
	UserID      snowflake.ID `json:"user_id"`
	Email       string       `json:"email"`
	DisplayName string       `json:"display_name"`
}

// TenantContext is the tenant a principal acts within, with the role the
// caller may consult. Guards return it so gated mutations resolve identity,
// tenant, and authorization in one call.
type TenantContext struct {
	TenantID snowflake.ID `json:"tenant_id"`
	Role     Role         `json:"role"`
}
