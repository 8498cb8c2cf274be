package memory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// GraphConfig holds construction parameters for the knowledge-graph
// memory provider.
type GraphConfig struct {
	BaseURL       string
	APIKey        string
	DefaultUserID string
	SearchLimit   int
	IdleReconnect time.Duration
	Clock         Clock
	HTTPTimeout   time.Duration
}

// GraphService talks to a knowledge-graph store through a memory-like
// interface. It conforms to the same Service contract as the semantic
// provider so the two are interchangeable; it additionally exposes
// entity traversal (Traverse).
type GraphService struct {
	recon  *reconnector
	cfg    GraphConfig
	client *graphClient
}

var _ Service = (*GraphService)(nil)

// NewGraph creates the knowledge-graph memory service.
func NewGraph(cfg GraphConfig) *GraphService {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	s := &GraphService{cfg: cfg}
	s.client = newGraphClient(cfg)
	s.recon = newReconnector("graph", cfg.IdleReconnect, cfg.Clock, func() {
		s.client = newGraphClient(cfg)
	})
	return s
}

// Name implements Service.
func (s *GraphService) Name() string { return "graph" }

func (s *GraphService) owner(userID string) string {
	if userID != "" {
		return userID
	}
	return s.cfg.DefaultUserID
}

// Add implements Service. The graph provider extracts entities and
// relations server-side; the client just ships the content.
func (s *GraphService) Add(ctx context.Context, content models.MemoryContent, userID string, metadata map[string]any) (string, error) {
	if content.IsEmpty() {
		return "", fmt.Errorf("%w: content is empty", services.ErrInvalidInput)
	}
	s.recon.ensureFresh()
	defer s.recon.touch()

	id, err := retryTransient(ctx, func() (string, error) {
		return s.client.addEpisode(ctx, content.Flatten(), s.owner(userID), metadata)
	})
	if err != nil {
		slog.Error("memory.add.failed", "provider", s.Name(), "error", err)
		return "", nil
	}
	return id, nil
}

// Search implements Service. Scores from graph search are normalized to
// [0,1]; matches carry source "graph".
func (s *GraphService) Search(ctx context.Context, query, userID string, limit int, opts SearchOptions) ([]models.MemoryMatch, error) {
	if err := checkScope(userID, opts); err != nil {
		return nil, err
	}
	s.recon.ensureFresh()
	defer s.recon.touch()

	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}
	owner := s.owner(userID)
	if opts.OverrideUserID != "" {
		owner = opts.OverrideUserID
	}

	matches, err := retryTransient(ctx, func() ([]models.MemoryMatch, error) {
		return s.client.search(ctx, query, owner, limit, nil)
	})
	if err != nil {
		slog.Error("memory.search.failed", "provider", s.Name(), "error", err)
		return []models.MemoryMatch{}, nil
	}
	return matches, nil
}

// SearchWithFilters implements Service.
func (s *GraphService) SearchWithFilters(ctx context.Context, query, userID string, filter map[string]any, limit int) ([]models.MemoryMatch, error) {
	normalized, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	s.recon.ensureFresh()
	defer s.recon.touch()

	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}
	matches, err := retryTransient(ctx, func() ([]models.MemoryMatch, error) {
		return s.client.search(ctx, query, s.owner(userID), limit, normalized)
	})
	if err != nil {
		slog.Error("memory.search.failed", "provider", s.Name(), "filtered", true, "error", err)
		return []models.MemoryMatch{}, nil
	}
	return matches, nil
}

// SearchByCategory implements Service.
func (s *GraphService) SearchByCategory(ctx context.Context, query, userID, category string, limit int) ([]models.MemoryMatch, error) {
	return s.SearchWithFilters(ctx, query, userID, map[string]any{"category": category}, limit)
}

// GetAll implements Service.
func (s *GraphService) GetAll(ctx context.Context, userID string, limit int) ([]models.Memory, error) {
	s.recon.ensureFresh()
	defer s.recon.touch()

	memories, err := retryTransient(ctx, func() ([]models.Memory, error) {
		return s.client.getAll(ctx, s.owner(userID), limit)
	})
	if err != nil {
		slog.Error("memory.get_all.failed", "provider", s.Name(), "error", err)
		return []models.Memory{}, nil
	}
	return memories, nil
}

// GetByID implements Service.
func (s *GraphService) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	s.recon.ensureFresh()
	defer s.recon.touch()

	memory, err := retryTransient(ctx, func() (*models.Memory, error) {
		return s.client.get(ctx, id)
	})
	if err != nil {
		slog.Error("memory.get.failed", "provider", s.Name(), "error", err)
		return nil, nil
	}
	return memory, nil
}

// Count implements Service.
func (s *GraphService) Count(ctx context.Context, userID string) (int, error) {
	s.recon.ensureFresh()
	defer s.recon.touch()

	count, err := retryTransient(ctx, func() (int, error) {
		return s.client.count(ctx, s.owner(userID))
	})
	if err != nil {
		slog.Error("memory.count.failed", "provider", s.Name(), "error", err)
		return 0, nil
	}
	return count, nil
}

// Update implements Service.
func (s *GraphService) Update(ctx context.Context, id string, content models.MemoryContent) error {
	if content.IsEmpty() {
		return fmt.Errorf("%w: content is empty", services.ErrInvalidInput)
	}
	s.recon.ensureFresh()
	defer s.recon.touch()

	_, err := retryTransient(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.update(ctx, id, content.Flatten())
	})
	if err != nil {
		slog.Error("memory.update.failed", "provider", s.Name(), "error", err)
	}
	return nil
}

// History implements Service. The graph provider records no per-memory
// history; the result is always empty.
func (s *GraphService) History(_ context.Context, _ string) ([]models.MemoryEvent, error) {
	return []models.MemoryEvent{}, nil
}

// Delete implements Service.
func (s *GraphService) Delete(ctx context.Context, id string) error {
	s.recon.ensureFresh()
	defer s.recon.touch()

	_, err := retryTransient(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.delete(ctx, id)
	})
	if err != nil {
		slog.Error("memory.delete.failed", "provider", s.Name(), "error", err)
	}
	return nil
}

// DeleteAll implements Service.
func (s *GraphService) DeleteAll(ctx context.Context, userID string) error {
	s.recon.ensureFresh()
	defer s.recon.touch()

	_, err := retryTransient(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.deleteAll(ctx, s.owner(userID))
	})
	if err != nil {
		slog.Error("memory.delete_all.failed", "provider", s.Name(), "error", err)
	}
	return nil
}

// Ping implements Service.
func (s *GraphService) Ping(ctx context.Context) error {
	s.recon.ensureFresh()
	defer s.recon.touch()
	if err := s.client.ping(ctx); err != nil {
		return fmt.Errorf("%w: %s", services.ErrUnavailable, s.Name())
	}
	return nil
}

// Traverse walks the graph outward from an entity up to maxHops and
// returns the related content as matches. The deep-recall gather does
// not call it; its graph source uses Search.
func (s *GraphService) Traverse(ctx context.Context, entity, userID string, maxHops, limit int) ([]models.MemoryMatch, error) {
	s.recon.ensureFresh()
	defer s.recon.touch()

	if maxHops <= 0 {
		maxHops = 2
	}
	matches, err := retryTransient(ctx, func() ([]models.MemoryMatch, error) {
		return s.client.traverse(ctx, entity, s.owner(userID), maxHops, limit)
	})
	if err != nil {
		slog.Error("memory.traverse.failed", "provider", s.Name(), "error", err)
		return []models.MemoryMatch{}, nil
	}
	return matches, nil
}

// graphClient is the raw HTTP client for the graph store API.
type graphClient struct {
	*semanticClient
}

func newGraphClient(cfg GraphConfig) *graphClient {
	return &graphClient{semanticClient: &semanticClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
	}}
}

type graphNodePayload struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Score      float64        `json:"score"`
	Properties map[string]any `json:"properties"`
}

func (c *graphClient) addEpisode(ctx context.Context, content, userID string, metadata map[string]any) (string, error) {
	body := map[string]any{
		"content":  content,
		"user_id":  userID,
		"metadata": metadata,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/graph/episodes", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *graphClient) search(ctx context.Context, query, userID string, limit int, filter map[string]any) ([]models.MemoryMatch, error) {
	body := map[string]any{
		"query":   query,
		"user_id": userID,
		"limit":   limit,
	}
	if filter != nil {
		body["filters"] = filter
	}
	var out []graphNodePayload
	if err := c.do(ctx, http.MethodPost, "/graph/search", body, &out); err != nil {
		return nil, err
	}
	return graphMatches(out), nil
}

func (c *graphClient) traverse(ctx context.Context, entity, userID string, maxHops, limit int) ([]models.MemoryMatch, error) {
	body := map[string]any{
		"entity":   entity,
		"user_id":  userID,
		"max_hops": maxHops,
		"limit":    limit,
	}
	var out []graphNodePayload
	if err := c.do(ctx, http.MethodPost, "/graph/traverse", body, &out); err != nil {
		return nil, err
	}
	return graphMatches(out), nil
}

func (c *graphClient) getAll(ctx context.Context, userID string, limit int) ([]models.Memory, error) {
	path := fmt.Sprintf("/graph/episodes?user_id=%s&limit=%d", url.QueryEscape(userID), limit)
	var out []graphNodePayload
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	memories := make([]models.Memory, 0, len(out))
	for _, n := range out {
		memories = append(memories, models.Memory{
			ID:       n.ID,
			Content:  n.Content,
			Metadata: n.Properties,
		})
	}
	return memories, nil
}

func (c *graphClient) get(ctx context.Context, id string) (*models.Memory, error) {
	var n graphNodePayload
	err := c.do(ctx, http.MethodGet, "/graph/episodes/"+url.PathEscape(id), nil, &n)
	if err != nil {
		var statusErr *httpStatusError
		if asStatus(err, &statusErr) && statusErr.status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &models.Memory{ID: n.ID, Content: n.Content, Metadata: n.Properties}, nil
}

func (c *graphClient) count(ctx context.Context, userID string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/graph/episodes/count?user_id="+url.QueryEscape(userID), nil, &out)
	return out.Count, err
}

func (c *graphClient) update(ctx context.Context, id, content string) error {
	return c.do(ctx, http.MethodPut, "/graph/episodes/"+url.PathEscape(id), map[string]any{"content": content}, nil)
}

func (c *graphClient) delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/graph/episodes/"+url.PathEscape(id), nil, nil)
}

func (c *graphClient) deleteAll(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/graph/episodes?user_id="+url.QueryEscape(userID), nil, nil)
}

func graphMatches(nodes []graphNodePayload) []models.MemoryMatch {
	matches := make([]models.MemoryMatch, 0, len(nodes))
	for _, n := range nodes {
		matches = append(matches, models.MemoryMatch{
			ID:       n.ID,
			Source:   models.SourceGraph,
			Content:  n.Content,
			Metadata: n.Properties,
			Score:    clampUnit(n.Score),
		})
	}
	return matches
}
