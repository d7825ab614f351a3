package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	entitlementdomain "github.com/smallbiznis/congregate/internal/entitlement/domain"
	"github.com/smallbiznis/congregate/internal/guard"
	identitydomain "github.com/smallbiznis/congregate/internal/identity/domain"
)

type setOverrideRequest struct {
	Enabled bool           `json:"enabled"`
	Config  map[string]any `json:"config"`
}

type setSubscriptionRequest struct {
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
}

// GetEntitlements serves the serialized entitlement snapshot consumed by the
// client-rendered layer. The client hides affordances from it; the server
// still guards every route and mutation independently.
func (s *Server) GetEntitlements(c *gin.Context) {
	snapshot, access, err := s.guard.Snapshot(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tenant_id":    access.Tenant.TenantID.String(),
		"entitlements": snapshot,
	}})
}

func (s *Server) GetEntitlement(c *gin.Context) {
	key := entitlementdomain.FeatureKey(strings.TrimSpace(c.Param("key")))
	if key == "" {
		AbortWithError(c, newValidationError("key", "invalid_feature_key", "invalid feature key"))
		return
	}

	snapshot, _, err := s.guard.Snapshot(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"feature": key,
		"enabled": entitlementdomain.IsVisible(snapshot, key),
	}})
}

// SetOverride writes a per-tenant feature override and invalidates the
// tenant's cached entitlements, locally and across instances.
func (s *Server) SetOverride(c *gin.Context) {
	access, err := s.requireAdmin(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	override, err := s.entitlementSvc.SetOverride(c.Request.Context(), entitlementdomain.SetOverrideRequest{
		TenantID:   access.Tenant.TenantID,
		FeatureKey: entitlementdomain.FeatureKey(strings.TrimSpace(c.Param("key"))),
		Enabled:    req.Enabled,
		Config:     req.Config,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": override})
}

func (s *Server) DeleteOverride(c *gin.Context) {
	access, err := s.requireAdmin(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	key := entitlementdomain.FeatureKey(strings.TrimSpace(c.Param("key")))
	if err := s.entitlementSvc.RemoveOverride(c.Request.Context(), access.Tenant.TenantID, key); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"feature": key, "removed": true}})
}

func (s *Server) SetSubscription(c *gin.Context) {
	access, err := s.requireAdmin(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	subscription, err := s.entitlementSvc.SetSubscription(c.Request.Context(), entitlementdomain.SetSubscriptionRequest{
		TenantID: access.Tenant.TenantID,
		PlanID:   req.PlanID,
		Status:   entitlementdomain.SubscriptionStatus(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subscription})
}

func (s *Server) requireAdmin(c *gin.Context) (guard.Access, error) {
	access, err := s.guard.ResolveAccess(c.Request.Context())
	if err != nil {
		return guard.Access{}, err
	}
	if access.Tenant.Role != identitydomain.RoleAdmin {
		return guard.Access{}, ErrForbidden
	}
	return access, nil
}
