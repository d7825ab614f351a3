package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Principal Principal `json:"principal"`
	Token     string    `json:"-"`
	ExpiresAt int64     `json:"expires_at"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a session token to its principal.
	Authenticate(ctx context.Context, token string) (Principal, error)
	// MembershipFor resolves the tenant context for a principal, or
	// ErrNoMembership when the user belongs to no tenant.
	MembershipFor(ctx context.Context, userID snowflake.ID) (TenantContext, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidSession     = errors.New("invalid_session")
	ErrSessionExpired     = errors.New("session_expired")
	ErrNoMembership       = errors.New("no_membership")
)
