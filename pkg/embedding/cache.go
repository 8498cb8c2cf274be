package embedding

import (
	"context"
	"sync"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// Cache is the per-call single-embedding cache. It guarantees that
// embedding a given (content, modality) pair happens at most once per
// top-level call, whether the embed is triggered from quick recall, deep
// recall, or an agent tool. Create one per top-level call; never share
// across calls.
type Cache struct {
	embedder Embedder

	mu      sync.Mutex
	vectors map[cacheKey][]float32

	// calls counts provider invocations; tests assert on it.
	calls int
}

type cacheKey struct {
	content  string
	modality Modality
}

// NewCache wraps an embedder with per-call memoization.
func NewCache(embedder Embedder) *Cache {
	return &Cache{
		embedder: embedder,
		vectors:  make(map[cacheKey][]float32),
	}
}

// Embed returns the cached vector for (content, modality) or computes it
// once. Errors are not cached; a failed embed may be retried by a later
// phase.
func (c *Cache) Embed(ctx context.Context, content string, modality Modality) ([]float32, error) {
	key := cacheKey{content: content, modality: modality}

	c.mu.Lock()
	if vec, ok := c.vectors[key]; ok {
		c.mu.Unlock()
		return vec, nil
	}
	c.mu.Unlock()

	vec, err := c.embedder.Embed(ctx, content, modality)

	c.mu.Lock()
	c.calls++
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.vectors[key] = vec
	c.mu.Unlock()
	return vec, nil
}

// EmbedMultimodal delegates without caching: block compositions are
// one-shot by construction.
func (c *Cache) EmbedMultimodal(ctx context.Context, blocks []models.ContentBlock) ([]float32, error) {
	return c.embedder.EmbedMultimodal(ctx, blocks)
}

// Dimension implements Embedder.
func (c *Cache) Dimension() int { return c.embedder.Dimension() }

// ProviderCalls reports how many times the underlying embedder ran.
func (c *Cache) ProviderCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var _ Embedder = (*Cache)(nil)

// cacheContextKey carries the per-call cache through request contexts so
// agent tools triggered anywhere in one top-level call share it.
type cacheContextKey struct{}

// WithCache attaches a per-call cache to the context. The transport
// boundary (REST handler, MCP tool dispatch) creates one cache per
// incoming call.
func WithCache(ctx context.Context, cache *Cache) context.Context {
	return context.WithValue(ctx, cacheContextKey{}, cache)
}

// CacheFrom returns the context's per-call cache, or a fresh one over
// embedder when the context carries none.
func CacheFrom(ctx context.Context, embedder Embedder) *Cache {
	if cache, ok := ctx.Value(cacheContextKey{}).(*Cache); ok {
		return cache
	}
	return NewCache(embedder)
}
