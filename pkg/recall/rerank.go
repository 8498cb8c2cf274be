package recall

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/ryanjosebrosas/second-brain/pkg/embedding"
	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// rerank reorders fused matches through the reranker. Each surviving
// item gets its RerankScore set; the fused Score is left untouched for
// transparency. Any rerank failure (including timeout) falls back to the
// fused order and logs rerank.failed.
func (p *Pipeline) rerank(ctx context.Context, query, instruction string, fused []models.MemoryMatch, limit int) []models.MemoryMatch {
	if !p.opts.Rerank.Enabled || p.reranker == nil || len(fused) <= 1 {
		return fused
	}

	topK := p.opts.Rerank.TopK
	if topK < limit {
		topK = limit
	}
	if topK > len(fused) {
		topK = len(fused)
	}

	// Candidate IDs are positions into the fused slice; the reranker
	// treats them as opaque and returns them in its new order.
	candidates := make([]embedding.Candidate, len(fused))
	for i, m := range fused {
		candidates[i] = embedding.Candidate{
			ID:      strconv.Itoa(i),
			Content: m.Content,
		}
	}

	rerankCtx, cancel := context.WithTimeout(ctx, p.opts.RerankTimeout)
	defer cancel()

	ranked, err := p.reranker.Rerank(rerankCtx, query, candidates, topK, instruction)
	if err != nil {
		slog.Warn("rerank.failed", "error", err)
		return fused
	}

	out := make([]models.MemoryMatch, 0, len(ranked))
	for _, rc := range ranked {
		idx, err := strconv.Atoi(rc.ID)
		if err != nil || idx < 0 || idx >= len(fused) {
			slog.Warn("rerank.failed", "error", "reranker returned unknown candidate id", "id", rc.ID)
			return fused
		}
		m := fused[idx]
		score := rc.Score
		m.RerankScore = &score
		out = append(out, m)
	}
	return out
}
