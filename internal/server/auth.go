package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/smallbiznis/congregate/internal/identity/domain"
)

func (s *Server) Login(c *gin.Context) {
	var req identitydomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.identitySvc.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, resp.Token, time.Unix(resp.ExpiresAt, 0))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		if err := s.identitySvc.Logout(c.Request.Context(), token); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"signed_out": true}})
}

func (s *Server) Me(c *gin.Context) {
	principal, ok := identitydomain.PrincipalFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	payload := gin.H{"principal": principal}
	if tenant, err := s.identitySvc.MembershipFor(c.Request.Context(), principal.UserID); err == nil {
		payload["tenant"] = tenant
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}
