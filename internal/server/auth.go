package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"planner/internal/common"
	"planner/internal/users"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", s.opts.CookieSecure, true)
}

// handleLogin checks credentials and starts a session.
func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	user, err := s.users.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, common.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	token, _, err := s.tokens.Issue(user)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	s.setSessionCookie(c, token, int(s.tokens.TTL().Seconds()))
	respondSuccess(c, http.StatusOK, gin.H{"success": true, "user": user, "token": token})
}

// handleRegister creates a regular account.
func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	user, err := s.users.Register(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, common.ErrDuplicateUsername):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username already exists"})
		return
	case errors.Is(err, users.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Password must be at most 72 bytes"})
		return
	case errors.Is(err, common.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username and password are required"})
		return
	case err != nil:
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{
		"success": true,
		"user":    gin.H{"id": user.ID, "username": user.Username},
	})
}

// handleCheck reports whether the caller holds a live session.
func (s *Server) handleCheck(c *gin.Context) {
	claims, err := s.parseSession(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}
	session, err := s.users.CheckSession(c.Request.Context(), claims.UserID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	if !session.Authenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}
	respondSuccess(c, http.StatusOK, session)
}

// handleLogout clears the session cookie.
func (s *Server) handleLogout(c *gin.Context) {
	s.setSessionCookie(c, "", -1)
	respondSuccess(c, http.StatusOK, gin.H{"success": true})
}
