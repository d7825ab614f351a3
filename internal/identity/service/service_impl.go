package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/congregate/internal/clock"
	"github.com/smallbiznis/congregate/internal/config"
	"github.com/smallbiznis/congregate/internal/identity/domain"
	"github.com/smallbiznis/congregate/internal/identity/password"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg   config.Config
	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clk   clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clk        clock.Clock
	repo       domain.Repository
	sessionTTL time.Duration
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("identity.service"),
		genID:      p.GenID,
		clk:        p.Clk,
		repo:       p.Repo,
		sessionTTL: p.Cfg.SessionTTL,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return domain.LoginResponse{}, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	if user == nil || !password.Verify(user.PasswordHash, req.Password) {
		return domain.LoginResponse{}, domain.ErrInvalidCredentials
	}

	now := s.clk.Now()
	session := domain.Session{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.repo.InsertSession(ctx, s.db, &session); err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		Principal: domain.Principal{
			UserID:      user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		},
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Unix(),
	}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, s.db, token)
}

func (s *Service) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Principal{}, domain.ErrInvalidSession
	}

	session, err := s.repo.FindSessionByToken(ctx, s.db, token)
	if err != nil {
		return domain.Principal{}, err
	}
	if session == nil {
		return domain.Principal{}, domain.ErrInvalidSession
	}
	if !s.clk.Now().Before(session.ExpiresAt) {
		return domain.Principal{}, domain.ErrSessionExpired
	}

	user, err := s.repo.FindUserByID(ctx, s.db, session.UserID)
	if err != nil {
		return domain.Principal{}, err
	}
	if user == nil {
		return domain.Principal{}, domain.ErrInvalidSession
	}

	return domain.Principal{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}, nil
}

func (s *Service) MembershipFor(ctx context.Context, userID snowflake.ID) (domain.TenantContext, error) {
	if userID == 0 {
		return domain.TenantContext{}, domain.ErrNoMembership
	}

	membership, err := s.repo.FindMembership(ctx, s.db, userID)
	if err != nil {
		return domain.TenantContext{}, err
	}
	if membership == nil {
		return domain.TenantContext{}, domain.ErrNoMembership
	}

	return domain.TenantContext{
		TenantID: membership.TenantID,
		Role:     membership.Role,
	}, nil
}
