package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	entitlementdomain "github.com/smallbiznis/congregate/internal/entitlement/domain"
	"github.com/smallbiznis/congregate/internal/guard"
	identitydomain "github.com/smallbiznis/congregate/internal/identity/domain"
	"github.com/smallbiznis/congregate/internal/tenantctx"
)

const (
	signInPath  = "/signin"
	upgradePath = "/upgrade"
)

// AuthRequired authenticates the session cookie and stores the principal in
// the request context. API routes answer 401 JSON on failure.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.authenticate(c) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// WebAuthRequired behaves like AuthRequired but redirects browsers to the
// sign-in page instead of answering JSON.
func (s *Server) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.authenticate(c) {
			c.Redirect(http.StatusFound, signInPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) authenticate(c *gin.Context) bool {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		return false
	}

	principal, err := s.identitySvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		return false
	}

	ctx := identitydomain.WithPrincipal(c.Request.Context(), principal)
	if tenant, err := s.identitySvc.MembershipFor(ctx, principal.UserID); err == nil {
		ctx = tenantctx.WithTenantID(ctx, tenant.TenantID)
	}
	c.Request = c.Request.WithContext(ctx)
	return true
}

// RequireFeaturePage is the route guard: it runs the shared enforcement
// pipeline before a page renders and redirects on failure. It is a routing
// convenience; mutations behind the page still call the action guard.
func (s *Server) RequireFeaturePage(key entitlementdomain.FeatureKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := s.guard.RequireFeature(c.Request.Context(), key)
		if err == nil {
			c.Next()
			return
		}

		switch {
		case errors.Is(err, guard.ErrAuthenticationRequired),
			errors.Is(err, guard.ErrNoTenantMembership):
			// Without a tenant there is nothing to authorize against, so
			// both cases land on sign-in.
			c.Redirect(http.StatusFound, signInPath)
			c.Abort()
		default:
			var disabled *guard.FeatureDisabledError
			if errors.As(err, &disabled) {
				c.Redirect(http.StatusFound, upgradePath+"?feature="+url.QueryEscape(disabled.Key.String()))
				c.Abort()
				return
			}
			AbortWithError(c, err)
		}
	}
}
