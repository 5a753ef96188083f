package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"planner/internal/collection"
	"planner/internal/common"
	"planner/internal/models"
)

// slotHandler loads and saves one typed slot as raw JSON.
type slotHandler struct {
	load func(ctx context.Context) (any, int64, error)
	save func(ctx context.Context, raw []byte, expected int64) (int64, error)
}

func typedSlot[T any](backend collection.Backend, key string, check func([]T) error) slotHandler {
	slot := collection.NewSlot[T](backend, key)
	return slotHandler{
		load: func(ctx context.Context) (any, int64, error) {
			return slot.Load(ctx)
		},
		save: func(ctx context.Context, raw []byte, expected int64) (int64, error) {
			items, err := collection.Decode[T](raw)
			if err != nil {
				return 0, errors.Join(common.ErrValidation, err)
			}
			if err := check(items); err != nil {
				return 0, err
			}
			return slot.SaveIfVersion(ctx, items, expected)
		},
	}
}

func invalidSlot(key string, i int, format string, args ...any) error {
	return fmt.Errorf("%w: %s[%d]: %s", common.ErrValidation, key, i, fmt.Sprintf(format, args...))
}

// checkProjects enforces unique non-empty ids and progress within 0..100.
func checkProjects(items []models.Project) error {
	seen := make(map[string]struct{}, len(items))
	for i, p := range items {
		if p.ID == "" {
			return invalidSlot("projects", i, "id is required")
		}
		if _, dup := seen[p.ID]; dup {
			return invalidSlot("projects", i, "duplicate id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Progress < 0 || p.Progress > 100 {
			return invalidSlot("projects", i, "progress %d outside 0..100", p.Progress)
		}
	}
	return nil
}

// checkTasks enforces unique non-empty ids and a known status. Missing
// document lists become empty ones.
func checkTasks(items []models.Task) error {
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		t := &items[i]
		if t.ID == "" {
			return invalidSlot("tasks", i, "id is required")
		}
		if _, dup := seen[t.ID]; dup {
			return invalidSlot("tasks", i, "duplicate id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		if !t.Status.Valid() {
			return invalidSlot("tasks", i, "unknown status %q", t.Status)
		}
		if t.Documents == nil {
			t.Documents = []models.Document{}
		}
	}
	return nil
}

func (s *Server) slotFor(key string) (slotHandler, bool) {
	switch key {
	case "projects":
		return typedSlot(s.slots, key, checkProjects), true
	case "tasks":
		return typedSlot(s.slots, key, checkTasks), true
	default:
		return slotHandler{}, false
	}
}

// handleGetSlot returns the whole stored array with its version as ETag.
func (s *Server) handleGetSlot(c *gin.Context) {
	h, ok := s.slotFor(c.Param("key"))
	if !ok {
		s.respondError(c, http.StatusNotFound, errors.New("unknown slot"))
		return
	}
	items, version, err := h.load(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	setETag(c, version)
	respondSuccess(c, http.StatusOK, items)
}

// handlePutSlot overwrites the whole array. With If-Match the write only
// succeeds against the matching version.
func (s *Server) handlePutSlot(c *gin.Context) {
	h, ok := s.slotFor(c.Param("key"))
	if !ok {
		s.respondError(c, http.StatusNotFound, errors.New("unknown slot"))
		return
	}
	expected := collection.Unconditional
	version, matched, err := ifMatchVersion(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if matched {
		expected = version
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes))
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	next, err := h.save(c.Request.Context(), raw, expected)
	switch {
	case errors.Is(err, common.ErrVersionConflict):
		s.respondError(c, http.StatusPreconditionFailed, err)
		return
	case errors.Is(err, common.ErrValidation):
		s.respondError(c, http.StatusBadRequest, err)
		return
	case err != nil:
		s.fail(c, err)
		return
	}
	setETag(c, next)
	respondSuccess(c, http.StatusOK, gin.H{"version": strconv.FormatInt(next, 10)})
}
