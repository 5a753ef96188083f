package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"planner/internal/common"
	"planner/internal/models"
)

// handleListUsers returns the directory without credentials.
func (s *Server) handleListUsers(c *gin.Context) {
	all, err := s.users.List(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, all)
}

// adminFailure writes the {success, message} envelope used by the admin API.
func (s *Server) adminFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
	case errors.Is(err, common.ErrDuplicateUsername):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username already exists"})
	case errors.Is(err, common.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	default:
		s.respondError(c, http.StatusInternalServerError, err)
	}
}

// handleUpdateUser applies a partial change to the user given by ?id=.
func (s *Server) handleUpdateUser(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User ID is required"})
		return
	}
	var req models.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	user, err := s.users.Update(c.Request.Context(), id, req)
	if err != nil {
		s.adminFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"success": true, "user": user})
}

// handleDeleteUser removes the user given by ?id=.
func (s *Server) handleDeleteUser(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User ID is required"})
		return
	}
	if err := s.users.Delete(c.Request.Context(), id); err != nil {
		s.adminFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"success": true})
}
