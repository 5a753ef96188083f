package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"planner/internal/blob"
)

// handleBlob streams a stored document or picture.
func (s *Server) handleBlob(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	rc, err := s.blobs.Open(c.Request.Context(), key)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, -1, blob.ContentType(key), rc, nil)
}
