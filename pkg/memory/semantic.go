package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
	"github.com/ryanjosebrosas/second-brain/pkg/version"
)

// SemanticConfig holds the construction parameters for the cloud semantic
// memory provider. The reconnector keeps them so the client can be
// rebuilt after an idle period.
type SemanticConfig struct {
	BaseURL       string
	APIKey        string
	DefaultUserID string
	SearchLimit   int
	Rerank        bool
	Threshold     *float64
	IdleReconnect time.Duration
	Clock         Clock
	HTTPTimeout   time.Duration
}

// SemanticService talks to a mem0-style cloud semantic memory API.
type SemanticService struct {
	recon  *reconnector
	cfg    SemanticConfig
	client *semanticClient
}

var _ Service = (*SemanticService)(nil)

// NewSemantic creates the cloud semantic memory service.
func NewSemantic(cfg SemanticConfig) *SemanticService {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	s := &SemanticService{cfg: cfg}
	s.client = newSemanticClient(cfg)
	s.recon = newReconnector("semantic", cfg.IdleReconnect, cfg.Clock, func() {
		s.client = newSemanticClient(cfg)
	})
	return s
}

// Name implements Service.
func (s *SemanticService) Name() string { return "semantic" }

// owner resolves the per-call scope: override wins over the configured
// default.
func (s *SemanticService) owner(userID string) string {
	if userID != "" {
		return userID
	}
	return s.cfg.DefaultUserID
}

// Add implements Service.
func (s *SemanticService) Add(ctx context.Context, content models.MemoryContent, userID string, metadata map[string]any) (string, error) {
	if content.IsEmpty() {
		return "", fmt.Errorf("%w: content is empty", services.ErrInvalidInput)
	}
	s.recon.ensureFresh()
	defer s.recon.touch()

	id, err := retryTransient(ctx, func() (string, error) {
		return s.client.add(ctx, content, s.owner(userID), metadata)
	})
	if err != nil {
		slog.Error("memory.add.failed", "provider", s.Name(), "error", err)
		return "", nil
	}
	return id, nil
}

// Search implements Service.
func (s *SemanticService) Search(ctx context.Context, query, userID string, limit int, opts SearchOptions) ([]models.MemoryMatch, error) {
	if err := checkScope(userID, opts); err != nil {
		return nil, err
	}
	s.recon.ensureFresh()
	defer s.recon.touch()

	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}
	req := s.searchRequest(query, userID, limit, opts, nil)

	matches, err := retryTransient(ctx, func() ([]models.MemoryMatch, error) {
		return s.client.search(ctx, req)
	})
	if err != nil {
		slog.Error("memory.search.failed", "provider", s.Name(), "error", err)
		return []models.MemoryMatch{}, nil
	}
	return matches, nil
}

// SearchWithFilters implements Service. The filter tree is validated
// before any provider call; malformed trees fail with InvalidFilter and
// the provider is never contacted.
func (s *SemanticService) SearchWithFilters(ctx context.Context, query, userID string, filter map[string]any, limit int) ([]models.MemoryMatch, error) {
	normalized, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	s.recon.ensureFresh()
	defer s.recon.touch()

	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}
	req := s.searchRequest(query, userID, limit, SearchOptions{Extended: true}, normalized)

	matches, err := retryTransient(ctx, func() ([]models.MemoryMatch, error) {
		return s.client.search(ctx, req)
	})
	if err != nil {
		slog.Error("memory.search.failed", "provider", s.Name(), "filtered", true, "error", err)
		return []models.MemoryMatch{}, nil
	}
	return matches, nil
}

// SearchByCategory implements Service.
func (s *SemanticService) SearchByCategory(ctx context.Context, query, userID, category string, limit int) ([]models.MemoryMatch, error) {
	return s.SearchWithFilters(ctx, query, userID, map[string]any{"category": category}, limit)
}

// GetAll implements Service.
func (s *SemanticService) GetAll(ctx context.Context, userID string, limit int) ([]models.Memory, error) {
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
func (s *SemanticService) GetByID(ctx context.Context, id string) (*models.Memory, error) {
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
func (s *SemanticService) Count(ctx context.Context, userID string) (int, error) {
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
func (s *SemanticService) Update(ctx context.Context, id string, content models.MemoryContent) error {
	if content.IsEmpty() {
		return fmt.Errorf("%w: content is empty", services.ErrInvalidInput)
	}
	s.recon.ensureFresh()
	defer s.recon.touch()

	_, err := retryTransient(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.update(ctx, id, content)
	})
	if err != nil {
		slog.Error("memory.update.failed", "provider", s.Name(), "error", err)
	}
	return nil
}

// History implements Service.
func (s *SemanticService) History(ctx context.Context, id string) ([]models.MemoryEvent, error) {
	s.recon.ensureFresh()
	defer s.recon.touch()

	events, err := retryTransient(ctx, func() ([]models.MemoryEvent, error) {
		return s.client.history(ctx, id)
	})
	if err != nil {
		slog.Error("memory.history.failed", "provider", s.Name(), "error", err)
		return []models.MemoryEvent{}, nil
	}
	return events, nil
}

// Delete implements Service.
func (s *SemanticService) Delete(ctx context.Context, id string) error {
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
func (s *SemanticService) DeleteAll(ctx context.Context, userID string) error {
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
func (s *SemanticService) Ping(ctx context.Context) error {
	s.recon.ensureFresh()
	defer s.recon.touch()
	if err := s.client.ping(ctx); err != nil {
		return fmt.Errorf("%w: %s", services.ErrUnavailable, s.Name())
	}
	return nil
}

// searchRequest assembles the provider search payload from per-call
// options and configured defaults.
func (s *SemanticService) searchRequest(query, userID string, limit int, opts SearchOptions, filter map[string]any) *semanticSearchRequest {
	owner := s.owner(userID)
	if opts.OverrideUserID != "" {
		owner = opts.OverrideUserID
	}
	req := &semanticSearchRequest{
		Query:  query,
		UserID: owner,
		Limit:  limit,
	}
	if opts.Extended {
		rerank := s.cfg.Rerank
		if opts.Rerank != nil {
			rerank = *opts.Rerank
		}
		req.Rerank = &rerank

		threshold := s.cfg.Threshold
		if opts.Threshold != nil {
			threshold = opts.Threshold
		}
		req.Threshold = threshold
		req.Categories = opts.Categories
		req.Filters = filter
	}
	return req
}

// semanticClient is the raw HTTP client for the provider API. A fresh
// instance is built on construction and on every idle reconnect.
type semanticClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newSemanticClient(cfg SemanticConfig) *semanticClient {
	return &semanticClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

type semanticSearchRequest struct {
	Query      string         `json:"query"`
	UserID     string         `json:"user_id"`
	Limit      int            `json:"limit"`
	Rerank     *bool          `json:"rerank,omitempty"`
	Threshold  *float64       `json:"threshold,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	Filters    map[string]any `json:"filters,omitempty"`
}

type semanticMemoryPayload struct {
	ID        string         `json:"id"`
	Memory    string         `json:"memory"`
	UserID    string         `json:"user_id"`
	Metadata  map[string]any `json:"metadata"`
	Score     float64        `json:"score"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (c *semanticClient) add(ctx context.Context, content models.MemoryContent, userID string, metadata map[string]any) (string, error) {
	var messages []map[string]any
	if content.Text != "" {
		messages = []map[string]any{{"role": "user", "content": content.Text}}
	} else {
		messages = []map[string]any{{"role": "user", "content": content.Blocks}}
	}
	body := map[string]any{
		"messages": messages,
		"user_id":  userID,
		"metadata": metadata,
	}
	var out []struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/memories/", body, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", nil
	}
	return out[0].ID, nil
}

func (c *semanticClient) search(ctx context.Context, req *semanticSearchRequest) ([]models.MemoryMatch, error) {
	var out []semanticMemoryPayload
	if err := c.do(ctx, http.MethodPost, "/v1/memories/search/", req, &out); err != nil {
		return nil, err
	}
	matches := make([]models.MemoryMatch, 0, len(out))
	for _, p := range out {
		matches = append(matches, models.MemoryMatch{
			ID:       p.ID,
			Source:   models.SourceSemantic,
			Content:  p.Memory,
			Metadata: p.Metadata,
			Score:    clampUnit(p.Score),
		})
	}
	return matches, nil
}

func (c *semanticClient) getAll(ctx context.Context, userID string, limit int) ([]models.Memory, error) {
	path := fmt.Sprintf("/v1/memories/?user_id=%s&limit=%d", url.QueryEscape(userID), limit)
	var out []semanticMemoryPayload
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	memories := make([]models.Memory, 0, len(out))
	for _, p := range out {
		memories = append(memories, models.Memory{
			ID:        p.ID,
			UserID:    p.UserID,
			Content:   p.Memory,
			Metadata:  p.Metadata,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return memories, nil
}

func (c *semanticClient) get(ctx context.Context, id string) (*models.Memory, error) {
	var p semanticMemoryPayload
	err := c.do(ctx, http.MethodGet, "/v1/memories/"+url.PathEscape(id)+"/", nil, &p)
	if err != nil {
		var statusErr *httpStatusError
		if ok := asStatus(err, &statusErr); ok && statusErr.status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &models.Memory{
		ID:        p.ID,
		UserID:    p.UserID,
		Content:   p.Memory,
		Metadata:  p.Metadata,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func (c *semanticClient) count(ctx context.Context, userID string) (int, error) {
	path := "/v1/memories/count/?user_id=" + url.QueryEscape(userID)
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *semanticClient) update(ctx context.Context, id string, content models.MemoryContent) error {
	body := map[string]any{"text": content.Flatten()}
	return c.do(ctx, http.MethodPut, "/v1/memories/"+url.PathEscape(id)+"/", body, nil)
}

func (c *semanticClient) history(ctx context.Context, id string) ([]models.MemoryEvent, error) {
	var out []models.MemoryEvent
	err := c.do(ctx, http.MethodGet, "/v1/memories/"+url.PathEscape(id)+"/history/", nil, &out)
	return out, err
}

func (c *semanticClient) delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/memories/"+url.PathEscape(id)+"/", nil, nil)
}

func (c *semanticClient) deleteAll(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/memories/?user_id="+url.QueryEscape(userID), nil, nil)
}

func (c *semanticClient) ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/ping/", nil, nil)
}

func (c *semanticClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpStatusError{
			status: resp.StatusCode,
			msg:    fmt.Sprintf("provider returned %d for %s %s", resp.StatusCode, method, path),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
