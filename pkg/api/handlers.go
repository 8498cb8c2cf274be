package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/ryanjosebrosas/second-brain/pkg/agent"
	"github.com/ryanjosebrosas/second-brain/pkg/embedding"
	"github.com/ryanjosebrosas/second-brain/pkg/memory"
	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/recall"
)

// RecallRequest is the body for POST /api/recall.
type RecallRequest struct {
	Query       string `json:"query"`
	Limit       int    `json:"limit"`
	Deep        bool   `json:"deep"`
	Instruction string `json:"instruction"`
	Format      bool   `json:"format"` // true = also render the text form
}

// RecallResponse returns the structured matches with optional text form.
type RecallResponse struct {
	Matches   []models.MemoryMatch `json:"matches"`
	Formatted string               `json:"formatted,omitempty"`
}

func (s *Server) handleRecall(c *echo.Context) error {
	var req RecallRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return c.String(http.StatusBadRequest, "query is required")
	}

	// One embed cache per top-level call.
	cache := embedding.NewCache(s.deps.Embedder)
	ctx := embedding.WithCache(c.Request().Context(), cache)

	var (
		matches []models.MemoryMatch
		err     error
	)
	if req.Deep {
		matches, err = s.deps.Recall.RecallDeepCached(ctx, req.Query, req.Limit, req.Instruction, cache)
	} else {
		matches, err = s.deps.Recall.QuickRecallCached(ctx, req.Query, req.Limit, cache)
	}
	if err != nil {
		return respondError(c, err)
	}

	resp := RecallResponse{Matches: matches}
	if req.Format {
		resp.Formatted = recall.Format(matches)
	}
	return c.JSON(http.StatusOK, resp)
}

// AgentRequest is the body for POST /api/agents/:name.
type AgentRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleAgent(c *echo.Context) error {
	var req AgentRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	if req.Input == "" {
		return c.String(http.StatusBadRequest, "input is required")
	}

	a, err := s.deps.Registry.Get(c.Param("name"))
	if err != nil {
		return c.String(http.StatusNotFound, "unknown agent")
	}

	cache := embedding.NewCache(s.deps.Embedder)
	ctx := embedding.WithCache(c.Request().Context(), cache)

	result, err := a.Run(ctx, req.Input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"result": result})
}

// PipelineRequest is the body for POST /api/pipelines.
type PipelineRequest struct {
	Steps []agent.Step `json:"steps"`
}

func (s *Server) handlePipeline(c *echo.Context) error {
	var req PipelineRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Steps) == 0 {
		return c.String(http.StatusBadRequest, "at least one step is required")
	}

	cache := embedding.NewCache(s.deps.Embedder)
	ctx := embedding.WithCache(c.Request().Context(), cache)

	results := agent.RunPipeline(ctx, s.deps.Registry, req.Steps)
	return c.JSON(http.StatusOK, results)
}

// MemoryRequest is the body for POST /api/memories.
type MemoryRequest struct {
	Content  string                `json:"content"`
	Blocks   []models.ContentBlock `json:"blocks,omitempty"`
	Metadata map[string]any        `json:"metadata,omitempty"`
	UserID   string                `json:"user_id,omitempty"` // override scope
}

func (s *Server) handleAddMemory(c *echo.Context) error {
	var req MemoryRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}

	content := models.TextContent(req.Content)
	if len(req.Blocks) > 0 {
		content = models.BlockContent(req.Blocks)
	}
	id, err := s.deps.Memory.Add(c.Request().Context(), content, req.UserID, req.Metadata)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListMemories(c *echo.Context) error {
	limit := intQuery(c, "limit", s.deps.Config.MemorySearchLimit)
	memories, err := s.deps.Memory.GetAll(c.Request().Context(), c.QueryParam("user_id"), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, memories)
}

func (s *Server) handleGetMemory(c *echo.Context) error {
	m, err := s.deps.Memory.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if m == nil {
		return c.String(http.StatusNotFound, "memory not found")
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleDeleteMemory(c *echo.Context) error {
	if err := s.deps.Memory.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchRequest is the body for POST /api/memories/search.
type SearchRequest struct {
	Query    string         `json:"query"`
	Limit    int            `json:"limit"`
	Filter   map[string]any `json:"filter,omitempty"`
	Category string         `json:"category,omitempty"`
}

func (s *Server) handleSearchMemories(c *echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return c.String(http.StatusBadRequest, "query is required")
	}

	ctx := c.Request().Context()
	var (
		matches []models.MemoryMatch
		err     error
	)
	switch {
	case req.Filter != nil:
		matches, err = s.deps.Memory.SearchWithFilters(ctx, req.Query, "", req.Filter, req.Limit)
	case req.Category != "":
		matches, err = s.deps.Memory.SearchByCategory(ctx, req.Query, "", req.Category, req.Limit)
	default:
		matches, err = s.deps.Memory.Search(ctx, req.Query, "", req.Limit, memory.SearchOptions{})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, matches)
}

func intQuery(c *echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
