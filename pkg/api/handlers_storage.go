package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/storage"
)

func (s *Server) handleListContentTypes(c *echo.Context) error {
	types := s.deps.Storage.Types().List()
	order, grouped := storage.GroupByCategory(types)
	return c.JSON(http.StatusOK, map[string]any{
		"types":          types,
		"category_order": order,
		"grouped":        grouped,
	})
}

func (s *Server) handleAddContentType(c *echo.Context) error {
	var ct models.ContentType
	if err := c.Bind(&ct); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	if err := s.deps.Storage.AddContentType(c.Request().Context(), s.deps.Config.UserID, ct); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, ct)
}

func (s *Server) handleRemoveContentType(c *echo.Context) error {
	err := s.deps.Storage.RemoveContentType(c.Request().Context(), s.deps.Config.UserID, c.Param("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ProjectRequest is the body for POST /api/projects.
type ProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (s *Server) handleCreateProject(c *echo.Context) error {
	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	p, err := s.deps.Storage.CreateProject(c.Request().Context(), storage.CreateProjectRequest{
		UserID:      s.deps.Config.UserID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) handleListProjects(c *echo.Context) error {
	includeArchived := c.QueryParam("include_archived") == "true"
	projects, err := s.deps.Storage.ListProjects(c.Request().Context(), s.deps.Config.UserID, includeArchived)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) handleGetProject(c *echo.Context) error {
	p, err := s.deps.Storage.GetProject(c.Request().Context(), c.Param("id"), s.deps.Config.UserID)
	if err != nil {
		return respondError(c, err)
	}
	artifacts, err := s.deps.Storage.ListArtifacts(c.Request().Context(), p.ID, s.deps.Config.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"project": p, "artifacts": artifacts})
}

// AdvanceRequest optionally names the target stage; empty advances to the
// next stage in order.
type AdvanceRequest struct {
	Stage string `json:"stage"`
}

func (s *Server) handleAdvanceProject(c *echo.Context) error {
	var req AdvanceRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	p, err := s.deps.Storage.AdvanceProject(c.Request().Context(),
		c.Param("id"), s.deps.Config.UserID, models.LifecycleStage(req.Stage))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteProject(c *echo.Context) error {
	if err := s.deps.Storage.DeleteProject(c.Request().Context(), c.Param("id"), s.deps.Config.UserID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ArtifactRequest is the body for PUT /api/projects/:id/artifacts/:type.
type ArtifactRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleAddArtifact(c *echo.Context) error {
	var req ArtifactRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	a, err := s.deps.Storage.AddArtifact(c.Request().Context(),
		c.Param("id"), s.deps.Config.UserID,
		models.ArtifactType(c.Param("type")), req.Title, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) handleDeleteArtifact(c *echo.Context) error {
	err := s.deps.Storage.DeleteArtifact(c.Request().Context(),
		c.Param("id"), s.deps.Config.UserID, models.ArtifactType(c.Param("type")))
	if err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
