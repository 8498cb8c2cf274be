// Package api provides the HTTP API over the recall pipeline, memory
// service, storage service, and agent fleet.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/ryanjosebrosas/second-brain/pkg/deps"
	"github.com/ryanjosebrosas/second-brain/pkg/storage"
	"github.com/ryanjosebrosas/second-brain/pkg/version"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	deps       *deps.Deps // nil when initialization failed
	initFailed bool
}

// NewServer creates the API server. When initialization failed upstream,
// pass nil deps and initFailed=true: every endpoint except /health
// returns 503 and /health reports the generic failure message — the
// underlying error stays in the logs.
func NewServer(d *deps.Deps, initFailed bool, port string) *Server {
	e := echo.New()
	e.Use(middleware.Recover())

	s := &Server{
		echo:       e,
		deps:       d,
		initFailed: initFailed,
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           e,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.Use(s.requireInit)
	api.Use(s.requireAPIKey)
	api.Use(s.operationDeadline)

	api.POST("/recall", s.handleRecall)
	api.POST("/agents/:name", s.handleAgent)
	api.POST("/pipelines", s.handlePipeline)

	api.POST("/memories", s.handleAddMemory)
	api.GET("/memories", s.handleListMemories)
	api.GET("/memories/:id", s.handleGetMemory)
	api.DELETE("/memories/:id", s.handleDeleteMemory)
	api.POST("/memories/search", s.handleSearchMemories)

	api.GET("/content-types", s.handleListContentTypes)
	api.POST("/content-types", s.handleAddContentType)
	api.DELETE("/content-types/:slug", s.handleRemoveContentType)

	api.POST("/projects", s.handleCreateProject)
	api.GET("/projects", s.handleListProjects)
	api.GET("/projects/:id", s.handleGetProject)
	api.POST("/projects/:id/advance", s.handleAdvanceProject)
	api.DELETE("/projects/:id", s.handleDeleteProject)
	api.PUT("/projects/:id/artifacts/:type", s.handleAddArtifact)
	api.DELETE("/projects/:id/artifacts/:type", s.handleDeleteArtifact)
}

// Start begins serving and blocks until shutdown.
func (s *Server) Start() error {
	slog.Info("api.listening", "addr", s.httpServer.Addr, "version", version.Full())
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *echo.Context) error {
	if s.initFailed || s.deps == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "unhealthy",
			"message": "Initialization failed. Check server logs.",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := storage.Health(ctx, s.deps.DB); err != nil {
		slog.Error("health.database.failed", "error", err)
		dbStatus = "unreachable"
	}
	memStatus := "ok"
	if err := s.deps.Memory.Ping(ctx); err != nil {
		memStatus = "unreachable"
	}

	status := http.StatusOK
	overall := "healthy"
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}
	return c.JSON(status, map[string]any{
		"status":  overall,
		"version": version.Full(),
		"components": map[string]string{
			"database": dbStatus,
			"memory":   memStatus,
		},
		"agents": s.deps.Registry.Names(),
	})
}
