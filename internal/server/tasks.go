package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"planner/internal/common"
	"planner/internal/models"
	"planner/internal/planner"
)

// maxUploadBytes caps a single multipart upload.
const maxUploadBytes = 32 << 20

// handleListTasks returns every task, or those of ?projectId=.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.planner.ListTasks(c.Request.Context(), c.Query("projectId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateTask inserts a new task at the end of its column.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req planner.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.planner.CreateTask(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	setETag(c, task.Version)
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleGetTask returns one task with its documents.
func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.planner.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	setETag(c, task.Version)
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask updates task fields such as status or description.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req planner.TaskUpdate
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

	task, err := s.planner.UpdateTask(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	setETag(c, task.Version)
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task. Its documents stay in storage.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.planner.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleUploadDocument attaches the multipart "file" field to a task.
func (s *Server) handleUploadDocument(c *gin.Context) {
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

	doc, err := s.planner.AttachDocument(c.Request.Context(), c.Param("id"), header.Filename, f, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"document": doc})
}

// handleDeleteDocument detaches a document and deletes its bytes.
func (s *Server) handleDeleteDocument(c *gin.Context) {
	if err := s.planner.RemoveDocument(c.Request.Context(), c.Param("id"), c.Param("docId")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

type moveRequest struct {
	Status models.TaskStatus `json:"status"`
}

// handleBoard returns the kanban columns.
func (s *Server) handleBoard(c *gin.Context) {
	cols, err := s.planner.Board(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"columns": cols})
}

// handleMoveTask drops a task at the end of another column.
func (s *Server) handleMoveTask(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	task, err := s.planner.MoveTask(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}
