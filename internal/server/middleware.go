package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"planner/internal/auth"
	"planner/internal/common"
)

const (
	sessionCookie = "session"
	claimsKey     = "claims"
)

// sessionToken reads the session cookie, falling back to a Bearer header.
func sessionToken(c *gin.Context) string {
	if v, err := c.Cookie(sessionCookie); err == nil && v != "" {
		return v
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (s *Server) parseSession(c *gin.Context) (*auth.Claims, error) {
	token := sessionToken(c)
	if token == "" {
		return nil, common.ErrUnauthorized
	}
	return s.tokens.Parse(token)
}

// requireSession rejects requests without a valid session token.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.parseSession(c)
		if err != nil {
			msg := "authentication required"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "session expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// requireAdmin re-reads the user so that revoked admin rights apply at once.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		session, err := s.users.CheckSession(c.Request.Context(), claims.UserID)
		if err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			c.Abort()
			return
		}
		if !session.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !session.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func currentUserID(c *gin.Context) string {
	if claims := currentClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
