package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"planner/internal/calendar"
	"planner/internal/common"
	"planner/internal/models"
)

// dateParam parses ?date=, falling back to today.
func (s *Server) dateParam(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return calendar.StartOfDay(s.now()), nil
	}
	d, err := time.ParseInLocation(models.DateLayout, raw, s.now().Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", common.ErrValidation)
	}
	return d, nil
}

// handleCalendar resolves a calendar view. The query replays the client's
// state: view, anchor date, a shortcut key and a navigation shift.
func (s *Server) handleCalendar(c *gin.Context) {
	view, err := calendar.ParseView(c.Query("view"))
	if err != nil {
		s.fail(c, err)
		return
	}
	anchor, err := s.dateParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	nav := calendar.New(anchor)
	nav.SetView(view)
	if key := c.Query("key"); key != "" {
		ctrl, _ := strconv.ParseBool(c.Query("ctrl"))
		nav.Shortcut(ctrl, key)
	}
	if raw := c.Query("shift"); raw != "" {
		shift, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(c, fmt.Errorf("%w: shift must be an integer", common.ErrValidation))
			return
		}
		nav.Navigate(shift)
	}

	agenda, err := s.planner.Agenda(c.Request.Context(), nav)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, agenda)
}

// handleDashboard returns the landing summary for ?date=.
func (s *Server) handleDashboard(c *gin.Context) {
	date, err := s.dateParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	dash, err := s.planner.Dashboard(c.Request.Context(), date)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, dash)
}

// handleSearchFiles filters documents by ?q=, case-insensitively.
func (s *Server) handleSearchFiles(c *gin.Context) {
	files, err := s.planner.SearchFiles(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"files": files})
}
