package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"planner/internal/common"
	"planner/internal/planner"
)

type projectRequest struct {
	Name string `json:"name"`
}

// ifMatchVersion reads an If-Match header holding a version number, quoted or
// not. "*" matches any current version and is reported as absent.
func ifMatchVersion(c *gin.Context) (int64, bool, error) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return 0, false, nil
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, false, fmt.Errorf("%w: If-Match must carry a version number", common.ErrValidation)
	}
	return v, true, nil
}

func setETag(c *gin.Context, version int64) {
	c.Header("ETag", strconv.Quote(strconv.FormatInt(version, 10)))
}

// handleListProjects returns all available projects.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.planner.ListProjects(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.planner.CreateProject(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	setETag(c, project.Version)
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleGetProject returns one project.
func (s *Server) handleGetProject(c *gin.Context) {
	project, err := s.planner.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	setETag(c, project.Version)
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleUpdateProject renames a project or sets its progress.
func (s *Server) handleUpdateProject(c *gin.Context) {
	var req planner.ProjectUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	version, ok, err := ifMatchVersion(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if ok {
		req.Version = version
	}

	project, err := s.planner.UpdateProject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	setETag(c, project.Version)
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project. Its tasks stay.
func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.planner.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleListProjectTasks fetches tasks for a project.
func (s *Server) handleListProjectTasks(c *gin.Context) {
	tasks, err := s.planner.ListTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleListProjectDocuments lists the documents attached to a project's tasks.
func (s *Server) handleListProjectDocuments(c *gin.Context) {
	docs, err := s.planner.ProjectDocuments(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"documents": docs})
}
