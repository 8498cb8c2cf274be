package embedding

import (
	"context"
	"log/slog"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// FallbackEmbedder tries the primary embedder and, when it fails, the
// secondary (if configured). With no secondary, the primary's error
// propagates and callers degrade to non-vector sources.
type FallbackEmbedder struct {
	primary   Embedder
	secondary Embedder // may be nil
}

var _ Embedder = (*FallbackEmbedder)(nil)

// NewFallbackEmbedder wraps primary with an optional secondary.
func NewFallbackEmbedder(primary, secondary Embedder) *FallbackEmbedder {
	return &FallbackEmbedder{primary: primary, secondary: secondary}
}

// Dimension implements Embedder.
func (f *FallbackEmbedder) Dimension() int { return f.primary.Dimension() }

// Embed implements Embedder.
func (f *FallbackEmbedder) Embed(ctx context.Context, content string, modality Modality) ([]float32, error) {
	vec, err := f.primary.Embed(ctx, content, modality)
	if err == nil {
		return vec, nil
	}
	if f.secondary == nil {
		return nil, err
	}
	slog.Warn("embed.primary.failed", "error", err)
	return f.secondary.Embed(ctx, content, modality)
}

// EmbedMultimodal implements Embedder.
func (f *FallbackEmbedder) EmbedMultimodal(ctx context.Context, blocks []models.ContentBlock) ([]float32, error) {
	vec, err := f.primary.EmbedMultimodal(ctx, blocks)
	if err == nil {
		return vec, nil
	}
	if f.secondary == nil {
		return nil, err
	}
	slog.Warn("embed.primary.failed", "multimodal", true, "error", err)
	return f.secondary.EmbedMultimodal(ctx, blocks)
}

// FallbackReranker tries the primary reranker, then the secondary. When
// both fail the caller keeps the fused order.
type FallbackReranker struct {
	primary   Reranker
	secondary Reranker // may be nil
}

var _ Reranker = (*FallbackReranker)(nil)

// NewFallbackReranker wraps primary with an optional secondary.
func NewFallbackReranker(primary, secondary Reranker) *FallbackReranker {
	return &FallbackReranker{primary: primary, secondary: secondary}
}

// Rerank implements Reranker.
func (f *FallbackReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int, instruction string) ([]RankedCandidate, error) {
	ranked, err := f.primary.Rerank(ctx, query, candidates, topK, instruction)
	if err == nil {
		return ranked, nil
	}
	if f.secondary == nil {
		return nil, err
	}
	slog.Warn("rerank.primary.failed", "error", err)
	return f.secondary.Rerank(ctx, query, candidates, topK, instruction)
}
