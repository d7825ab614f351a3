package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/congregate/internal/clock"
	"github.com/smallbiznis/congregate/internal/config"
	"github.com/smallbiznis/congregate/internal/identity/domain"
	"github.com/smallbiznis/congregate/internal/identity/password"
	"github.com/smallbiznis/congregate/internal/identity/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupIdentity(t *testing.T, clk clock.Clock) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

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
		&domain.User{},
		&domain.Tenant{},
		&domain.Membership{},
		&domain.Session{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := New(Params{
		Cfg:   config.Config{SessionTTL: 30 * 24 * time.Hour},
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clk:   clk,
		Repo:  repository.Provide(),
	})
	return svc, db, node
}

func seedUser(t *testing.T, db *gorm.DB, node *snowflake.Node, email, plain string) snowflake.ID {
	t.Helper()
	hash, err := password.Hash(plain)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	id := node.Generate()
	err = db.Exec(
		`INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, email, "Test User", hash,
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedMembership(t *testing.T, db *gorm.DB, tenantID, userID snowflake.ID, role domain.Role) {
	t.Helper()
	err := db.Exec(
		`INSERT INTO memberships (tenant_id, user_id, role, created_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		tenantID, userID, role,
	).Error
	if err != nil {
		t.Fatalf("seed membership: %v", err)
	}
}

func TestLoginAndAuthenticate(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, db, node := setupIdentity(t, clk)
	userID := seedUser(t, db, node, "pastor@example.org", "hunter2hunter2")

	resp, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "  Pastor@Example.org ",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Principal.UserID != userID {
		t.Fatal("expected the seeded user's principal")
	}
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}

	principal, err := svc.Authenticate(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.Email != "pastor@example.org" {
		t.Fatalf("expected normalized email, got %s", principal.Email)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, db, node := setupIdentity(t, clk)
	seedUser(t, db, node, "pastor@example.org", "hunter2hunter2")

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "pastor@example.org",
		Password: "wrong",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Email:    "nobody@example.org",
		Password: "hunter2hunter2",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestAuthenticateExpiredSession(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, db, node := setupIdentity(t, clk)
	seedUser(t, db, node, "pastor@example.org", "hunter2hunter2")

	resp, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "pastor@example.org",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	clk.Advance(30*24*time.Hour + time.Minute)

	_, err = svc.Authenticate(context.Background(), resp.Token)
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, db, node := setupIdentity(t, clk)
	seedUser(t, db, node, "pastor@example.org", "hunter2hunter2")

	resp, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "pastor@example.org",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), resp.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	_, err = svc.Authenticate(context.Background(), resp.Token)
	if !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after logout, got %v", err)
	}
}

func TestMembershipFor(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, db, node := setupIdentity(t, clk)
	userID := seedUser(t, db, node, "pastor@example.org", "hunter2hunter2")
	tenantID := node.Generate()
	seedMembership(t, db, tenantID, userID, domain.RoleAdmin)

	tenant, err := svc.MembershipFor(context.Background(), userID)
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if tenant.TenantID != tenantID || tenant.Role != domain.RoleAdmin {
		t.Fatalf("unexpected tenant context: %+v", tenant)
	}

	_, err = svc.MembershipFor(context.Background(), node.Generate())
	if !errors.Is(err, domain.ErrNoMembership) {
		t.Fatalf("expected ErrNoMembership, got %v", err)
	}
}
