package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"planner/internal/auth"
	"planner/internal/blob"
	"planner/internal/collection"
	"planner/internal/common"
	"planner/internal/planner"
	"planner/internal/users"
)

// Options carries everything the HTTP server needs.
type Options struct {
	Users   *users.Service
	Planner *planner.Service
	Slots   collection.Backend
	Tokens  *auth.Issuer
	Logger  *slog.Logger

	// Blobs is served under /api/blobs when ServeBlobs is set (filesystem driver).
	Blobs      blob.Store
	ServeBlobs bool

	StaticDir    string
	CookieSecure bool
	CORSOrigins  []string
	// Health reports readiness; nil means always ready.
	Health func(ctx context.Context) error
}

// Server provides HTTP handlers for the planner backend.
type Server struct {
	engine    *gin.Engine
	users     *users.Service
	planner   *planner.Service
	slots     collection.Backend
	tokens    *auth.Issuer
	blobs     blob.Store
	logger    *slog.Logger
	staticDir string
	opts      Options
	now       func() time.Time
}

// New constructs the HTTP server with routes and middleware configured.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if len(opts.CORSOrigins) > 0 {
		router.Use(corsMiddleware(opts.CORSOrigins))
	}

	srv := &Server{
		engine:    router,
		users:     opts.Users,
		planner:   opts.Planner,
		slots:     opts.Slots,
		tokens:    opts.Tokens,
		blobs:     opts.Blobs,
		logger:    logger,
		staticDir: opts.StaticDir,
		opts:      opts,
		now:       time.Now,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	authed := []gin.HandlerFunc{s.requireSession()}
	admin := []gin.HandlerFunc{s.requireSession(), s.requireAdmin()}

	s.route(api, "/healthz", handlers{http.MethodGet: s.handleHealth})

	s.route(api, "/auth/login", handlers{http.MethodPost: s.handleLogin})
	s.route(api, "/auth/register", handlers{http.MethodPost: s.handleRegister})
	s.route(api, "/auth/check", handlers{http.MethodGet: s.handleCheck})
	s.route(api, "/auth/logout", handlers{http.MethodPost: s.handleLogout})

	s.route(api, "/admin/users", handlers{
		http.MethodGet:    s.handleListUsers,
		http.MethodPut:    s.handleUpdateUser,
		http.MethodDelete: s.handleDeleteUser,
	}, admin...)

	s.route(api, "/projects", handlers{
		http.MethodGet:  s.handleListProjects,
		http.MethodPost: s.handleCreateProject,
	}, authed...)
	s.route(api, "/projects/:id", handlers{
		http.MethodGet:    s.handleGetProject,
		http.MethodPut:    s.handleUpdateProject,
		http.MethodDelete: s.handleDeleteProject,
	}, authed...)
	s.route(api, "/projects/:id/tasks", handlers{http.MethodGet: s.handleListProjectTasks}, authed...)
	s.route(api, "/projects/:id/documents", handlers{http.MethodGet: s.handleListProjectDocuments}, authed...)

	s.route(api, "/tasks", handlers{
		http.MethodGet:  s.handleListTasks,
		http.MethodPost: s.handleCreateTask,
	}, authed...)
	s.route(api, "/tasks/:id", handlers{
		http.MethodGet:    s.handleGetTask,
		http.MethodPut:    s.handleUpdateTask,
		http.MethodDelete: s.handleDeleteTask,
	}, authed...)
	s.route(api, "/tasks/:id/documents", handlers{http.MethodPost: s.handleUploadDocument}, authed...)
	s.route(api, "/tasks/:id/documents/:docId", handlers{http.MethodDelete: s.handleDeleteDocument}, authed...)

	s.route(api, "/board", handlers{http.MethodGet: s.handleBoard}, authed...)
	s.route(api, "/board/tasks/:id", handlers{http.MethodPut: s.handleMoveTask}, authed...)
	s.route(api, "/calendar", handlers{http.MethodGet: s.handleCalendar}, authed...)
	s.route(api, "/dashboard", handlers{http.MethodGet: s.handleDashboard}, authed...)
	s.route(api, "/files", handlers{http.MethodGet: s.handleSearchFiles}, authed...)

	s.route(api, "/settings/profile", handlers{
		http.MethodGet: s.handleGetProfile,
		http.MethodPut: s.handleUpdateProfile,
	}, authed...)
	s.route(api, "/settings/profile/picture", handlers{http.MethodPut: s.handleUploadPicture}, authed...)

	s.route(api, "/slots/:key", handlers{
		http.MethodGet: s.handleGetSlot,
		http.MethodPut: s.handlePutSlot,
	}, authed...)

	if s.opts.ServeBlobs && s.blobs != nil {
		s.route(api, "/blobs/*key", handlers{http.MethodGet: s.handleBlob}, authed...)
	}

	s.mountStatic()
}

type handlers map[string]gin.HandlerFunc

// routeMethods are the verbs answered with 405 when a path does not support them.
var routeMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// route registers hs on path behind mw. Every other verb gets a 405 listing the
// supported ones; that answer does not depend on mw, so it needs no session.
// HEAD follows GET where GET exists.
func (s *Server) route(g *gin.RouterGroup, path string, hs handlers, mw ...gin.HandlerFunc) {
	if get, ok := hs[http.MethodGet]; ok {
		if _, ok := hs[http.MethodHead]; !ok {
			hs[http.MethodHead] = get
		}
	}
	allowed := make([]string, 0, len(hs))
	for m := range hs {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	for _, m := range routeMethods {
		if h, ok := hs[m]; ok {
			chain := append(append([]gin.HandlerFunc{}, mw...), h)
			g.Handle(m, path, chain...)
			continue
		}
		g.Handle(m, path, func(c *gin.Context) {
			c.Header("Allow", allow)
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method " + c.Request.Method + " not allowed"})
		})
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "If-Match"},
		ExposeHeaders:    []string{"ETag", "Allow"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			cfg.AllowOrigins = nil
			break
		}
		cfg.AllowOrigins = append(cfg.AllowOrigins, o)
	}
	return cors.New(cfg)
}

// requestLogger writes one slog line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client", c.ClientIP()),
		)
	}
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	if s.opts.Health != nil {
		if err := s.opts.Health(c.Request.Context()); err != nil {
			s.logger.Error("health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrDuplicateUsername):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrCorruptSlot):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status matching err.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondError logs the error and returns a JSON payload. Internal errors are
// not echoed to the client.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", msg))
		msg = http.StatusText(status)
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", msg))
	}
	c.JSON(status, gin.H{"error": msg})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
