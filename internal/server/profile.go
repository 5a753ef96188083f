package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"planner/internal/blob"
	"planner/internal/common"
	"planner/internal/models"
)

func (s *Server) handleGetProfile(c *gin.Context) {
	profile, err := s.users.Profile(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"profile": profile})
}

// handleUpdateProfile applies the fields present in the body.
func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	profile, err := s.users.UpdateProfile(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"profile": profile})
}

// handleUploadPicture replaces the caller's profile picture.
func (s *Server) handleUploadPicture(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		s.fail(c, fmt.Errorf("%w: multipart field \"file\" is required", common.ErrValidation))
		return
	}
	f, err := header.Open()
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = blob.ContentType(header.Filename)
	}
	profile, err := s.users.SetProfilePicture(c.Request.Context(), currentUserID(c), header.Filename, f, header.Size, contentType)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"profile": profile})
}
