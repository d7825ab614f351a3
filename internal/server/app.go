package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	entitlementdomain "github.com/smallbiznis/congregate/internal/entitlement/domain"
	identitydomain "github.com/smallbiznis/congregate/internal/identity/domain"
)

// SignIn is the target of the route guard's unauthenticated redirect.
func (s *Server) SignIn(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page":    "signin",
		"message": "sign in to continue",
	})
}

// Upgrade is the target of the route guard's feature redirect. The feature
// query parameter carries the key that blocked navigation so the page can
// name the plan that unlocks it.
func (s *Server) Upgrade(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page":    "upgrade",
		"feature": c.Query("feature"),
	})
}

// Navigation reports which sections the current tenant may see. The client
// hides entries where visible is false; hiding is presentation only and every
// destination stays guarded server side.
func (s *Server) Navigation(c *gin.Context) {
	snapshot, _, err := s.guard.Snapshot(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sections := []entitlementdomain.FeatureKey{
		entitlementdomain.FeaturePeople,
		entitlementdomain.FeatureEvents,
		entitlementdomain.FeatureMessaging,
		entitlementdomain.FeatureGroups,
		entitlementdomain.FeatureCheckin,
		entitlementdomain.FeatureMealTrains,
	}

	items := make([]gin.H, 0, len(sections))
	for _, key := range sections {
		items = append(items, gin.H{
			"feature": key,
			"visible": entitlementdomain.IsVisible(snapshot, key),
		})
	}
	c.JSON(http.StatusOK, gin.H{"navigation": items})
}

// The /app pages below sit behind RequireFeaturePage, so reaching a handler
// means the feature check already passed.

func (s *Server) PeoplePage(c *gin.Context) {
	s.appPage(c, entitlementdomain.FeaturePeople)
}

func (s *Server) EventsPage(c *gin.Context) {
	s.appPage(c, entitlementdomain.FeatureEvents)
}

func (s *Server) GroupsPage(c *gin.Context) {
	s.appPage(c, entitlementdomain.FeatureGroups)
}

func (s *Server) CheckinPage(c *gin.Context) {
	s.appPage(c, entitlementdomain.FeatureCheckin)
}

func (s *Server) appPage(c *gin.Context, key entitlementdomain.FeatureKey) {
	principal, _ := identitydomain.PrincipalFromContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"page":    key,
		"user":    principal.Email,
		"feature": key,
	})
}

type sendGroupMessageRequest struct {
	GroupID string `json:"group_id" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// SendGroupMessage is an action-guarded mutation: it re-checks entitlements
// at execution time even though the groups page was already visible, so a
// stale client cannot write after a downgrade.
func (s *Server) SendGroupMessage(c *gin.Context) {
	var req sendGroupMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	access, err := s.guard.RequireAllFeatures(c.Request.Context(),
		entitlementdomain.FeatureGroups,
		entitlementdomain.FeatureMessaging,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Delivery itself is out of scope here; acknowledging the accepted send
	// is enough to exercise the guard path.
	c.JSON(http.StatusAccepted, gin.H{
		"tenant_id": access.Tenant.TenantID.String(),
		"group_id":  req.GroupID,
		"status":    "queued",
	})
}
