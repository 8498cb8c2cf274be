package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
	"github.com/ryanjosebrosas/second-brain/pkg/version"
)

// VoyageConfig configures the Voyage-style embedding/rerank client.
type VoyageConfig struct {
	BaseURL     string
	APIKey      string
	Model       string // embedding model
	RerankModel string
	Dimension   int
	HTTPTimeout time.Duration
}

// VoyageClient implements Embedder and Reranker over the Voyage HTTP API.
type VoyageClient struct {
	cfg  VoyageConfig
	http *http.Client
}

var (
	_ Embedder = (*VoyageClient)(nil)
	_ Reranker = (*VoyageClient)(nil)
)

// NewVoyage creates the Voyage adapter.
func NewVoyage(cfg VoyageConfig) *VoyageClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.voyageai.com"
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	return &VoyageClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Dimension implements Embedder.
func (c *VoyageClient) Dimension() int { return c.cfg.Dimension }

// Embed implements Embedder. Text goes through the text embeddings
// endpoint; other modalities go through the multimodal endpoint as a
// single-block composition.
func (c *VoyageClient) Embed(ctx context.Context, content string, modality Modality) ([]float32, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content is empty", services.ErrInvalidInput)
	}
	if modality == "" || modality == ModalityText {
		return c.embedText(ctx, content)
	}
	block := models.ContentBlock{URL: content}
	switch modality {
	case ModalityImage:
		block.Type = models.BlockImage
	case ModalityPDF:
		block.Type = models.BlockPDF
	case ModalityVideo:
		block.Type = models.BlockVideo
	default:
		return nil, fmt.Errorf("%w: unknown modality %q", services.ErrInvalidInput, modality)
	}
	return c.EmbedMultimodal(ctx, []models.ContentBlock{block})
}

func (c *VoyageClient) embedText(ctx context.Context, content string) ([]float32, error) {
	body := map[string]any{
		"input": []string{content},
		"model": c.cfg.Model,
	}
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	err := retryTransient(ctx, func() error {
		return c.post(ctx, "/v1/embeddings", body, &out)
	})
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vectors", services.ErrUnavailable)
	}
	return out.Data[0].Embedding, nil
}

// EmbedMultimodal implements Embedder: one vector for the composition.
func (c *VoyageClient) EmbedMultimodal(ctx context.Context, blocks []models.ContentBlock) ([]float32, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no content blocks", services.ErrInvalidInput)
	}
	content := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case models.BlockText:
			content = append(content, map[string]any{"type": "text", "text": b.Text})
		case models.BlockImage:
			content = append(content, map[string]any{"type": "image_url", "image_url": b.URL})
		case models.BlockPDF:
			content = append(content, map[string]any{"type": "pdf_url", "pdf_url": b.URL})
		case models.BlockVideo:
			content = append(content, map[string]any{"type": "video_url", "video_url": b.URL})
		default:
			return nil, fmt.Errorf("%w: unknown block type %q", services.ErrInvalidInput, b.Type)
		}
	}

	body := map[string]any{
		"inputs": []map[string]any{{"content": content}},
		"model":  c.cfg.Model,
	}
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	err := retryTransient(ctx, func() error {
		return c.post(ctx, "/v1/multimodalembeddings", body, &out)
	})
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vectors", services.ErrUnavailable)
	}
	return out.Data[0].Embedding, nil
}

// Rerank implements Reranker. Scores are provider-native (typically in
// [0,1]) and are preserved as returned.
func (c *VoyageClient) Rerank(ctx context.Context, query string, candidates []Candidate, topK int, instruction string) ([]RankedCandidate, error) {
	if len(candidates) == 0 {
		return []RankedCandidate{}, nil
	}
	documents := make([]string, len(candidates))
	for i, cand := range candidates {
		documents[i] = cand.Content
	}

	body := map[string]any{
		"query":     query,
		"documents": documents,
		"model":     c.cfg.RerankModel,
	}
	if topK > 0 {
		body["top_k"] = topK
	}
	if instruction != "" {
		body["instruction"] = instruction
	}

	var out struct {
		Data []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"data"`
	}
	err := retryTransient(ctx, func() error {
		return c.post(ctx, "/v1/rerank", body, &out)
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedCandidate, 0, len(out.Data))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(candidates) {
			return nil, fmt.Errorf("%w: reranker returned out-of-range index %d", services.ErrUnavailable, d.Index)
		}
		ranked = append(ranked, RankedCandidate{
			ID:    candidates[d.Index].ID,
			Score: d.RelevanceScore,
		})
	}
	return ranked, nil
}

func (c *VoyageClient) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Body is drained but never surfaced: provider errors can carry
		// token fragments.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &statusError{status: resp.StatusCode, path: path}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type statusError struct {
	status int
	path   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned %d for %s", e.status, e.path)
}

func isTransient(err error) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.status >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, context.DeadlineExceeded)
}

func retryTransient(ctx context.Context, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := op(); err != nil {
			if !isTransient(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	return err
}
