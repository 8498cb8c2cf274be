package recall

import (
	"context"
	"log/slog"
	"time"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/embedding"
	"github.com/ryanjosebrosas/second-brain/pkg/memory"
	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/storage"
)

// Storage is the slice of the storage service the pipeline needs.
type Storage interface {
	HybridSearch(ctx context.Context, table, query, userID string, embedding []float32, limit int, threshold float64) ([]models.MemoryMatch, error)
}

// Options carries the pipeline tuning derived from configuration.
type Options struct {
	UserID        string
	SearchLimit   int
	Rerank        config.RerankConfig
	Hybrid        config.HybridConfig
	SourceTimeout time.Duration
	RerankTimeout time.Duration
}

// Pipeline runs the recall phases over the configured sources.
type Pipeline struct {
	memory   memory.Service
	store    Storage
	graph    memory.Service // nil when graph memory is disabled
	embedder embedding.Embedder
	reranker embedding.Reranker
	opts     Options
}

// New creates the recall pipeline. graph may be nil; reranker may be nil
// when reranking is disabled.
func New(mem memory.Service, store Storage, graph memory.Service, embedder embedding.Embedder, reranker embedding.Reranker, opts Options) *Pipeline {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = config.DefaultMemorySearchLimit
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 10 * time.Second
	}
	if opts.RerankTimeout <= 0 {
		opts.RerankTimeout = 15 * time.Second
	}
	if opts.Hybrid.RRFK <= 0 {
		opts.Hybrid.RRFK = config.DefaultRRFK
	}
	if opts.Rerank.OversampleMultiplier < 1 {
		opts.Rerank.OversampleMultiplier = 1
	}
	return &Pipeline{
		memory:   mem,
		store:    store,
		graph:    graph,
		embedder: embedder,
		reranker: reranker,
		opts:     opts,
	}
}

// QuickRecall classifies the query first and routes it. Complex queries
// delegate to RecallDeep without computing an embedding here — the deep
// path computes its own, once. Simple queries embed once and gather over
// semantic memory plus the patterns hybrid index.
func (p *Pipeline) QuickRecall(ctx context.Context, query string, limit int) ([]models.MemoryMatch, error) {
	return p.QuickRecallCached(ctx, query, limit, embedding.NewCache(p.embedder))
}

// QuickRecallCached is QuickRecall with a caller-supplied embed cache,
// used by agent tools so a whole top-level call shares one cache.
func (p *Pipeline) QuickRecallCached(ctx context.Context, query string, limit int, cache *embedding.Cache) ([]models.MemoryMatch, error) {
	limit = p.clamp(limit)
	logQuery("recall.quick", query)

	if Classify(query) == ComplexityComplex {
		slog.Debug("recall.routed_deep", "query_len", len(query))
		return p.recallDeep(ctx, query, limit, "", cache)
	}

	fetch := p.oversampled(limit)
	vec := p.embed(ctx, query, cache)

	sources := []Source{
		{Name: "mem0", Search: func(ctx context.Context) ([]models.MemoryMatch, error) {
			return p.memory.Search(ctx, query, "", fetch, memory.SearchOptions{})
		}},
	}
	if vec != nil {
		sources = append(sources, Source{Name: "patterns", Search: func(ctx context.Context) ([]models.MemoryMatch, error) {
			return p.store.HybridSearch(ctx, "patterns", query, p.opts.UserID, vec, fetch, p.opts.Hybrid.ScoreThreshold)
		}})
	}

	gathered := Gather(ctx, sources, p.opts.SourceTimeout)
	return p.finish(ctx, query, "", gathered, limit), nil
}

// RecallDeep runs the broad gather: semantic memory, every whitelisted
// hybrid table, and graph memory when enabled.
func (p *Pipeline) RecallDeep(ctx context.Context, query string, limit int) ([]models.MemoryMatch, error) {
	return p.RecallDeepCached(ctx, query, limit, "", embedding.NewCache(p.embedder))
}

// RecallDeepCached is RecallDeep with a caller-supplied embed cache and
// rerank instruction.
func (p *Pipeline) RecallDeepCached(ctx context.Context, query string, limit int, instruction string, cache *embedding.Cache) ([]models.MemoryMatch, error) {
	limit = p.clamp(limit)
	logQuery("recall.deep", query)
	return p.recallDeep(ctx, query, limit, instruction, cache)
}

func (p *Pipeline) recallDeep(ctx context.Context, query string, limit int, instruction string, cache *embedding.Cache) ([]models.MemoryMatch, error) {
	fetch := p.oversampled(limit)
	expanded := ExpandQuery(query)
	vec := p.embed(ctx, query, cache)

	sources := []Source{
		{Name: "mem0", Search: func(ctx context.Context) ([]models.MemoryMatch, error) {
			return p.memory.Search(ctx, expanded, "", fetch, memory.SearchOptions{})
		}},
	}
	if vec != nil {
		for _, table := range storage.SearchableTables() {
			sources = append(sources, Source{Name: table, Search: func(ctx context.Context) ([]models.MemoryMatch, error) {
				return p.store.HybridSearch(ctx, table, expanded, p.opts.UserID, vec, fetch, p.opts.Hybrid.ScoreThreshold)
			}})
		}
	}
	if p.graph != nil {
		sources = append(sources, Source{Name: "graph", Search: func(ctx context.Context) ([]models.MemoryMatch, error) {
			return p.graph.Search(ctx, expanded, "", fetch, memory.SearchOptions{})
		}})
	}

	gathered := Gather(ctx, sources, p.opts.SourceTimeout)
	return p.finish(ctx, query, instruction, gathered, limit), nil
}

// finish runs the shared tail of both paths: fuse, rerank, dedup, trim.
// Each phase sets exactly the fields it owns.
func (p *Pipeline) finish(ctx context.Context, query, instruction string, gathered map[string][]models.MemoryMatch, limit int) []models.MemoryMatch {
	fused := FuseRRF(gathered, p.opts.Hybrid.RRFK)
	ranked := p.rerank(ctx, query, instruction, fused, limit)
	deduped := Deduplicate(ranked)
	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped
}

// embed computes the query embedding through the per-call cache. An
// embedding failure degrades the call to text-only sources rather than
// failing it.
func (p *Pipeline) embed(ctx context.Context, query string, cache *embedding.Cache) []float32 {
	vec, err := cache.Embed(ctx, query, embedding.ModalityText)
	if err != nil {
		slog.Warn("recall.embed.failed", "error", err)
		return nil
	}
	return vec
}

func (p *Pipeline) clamp(limit int) int {
	if limit == 0 {
		limit = p.opts.SearchLimit
	}
	return ClampLimit(limit)
}

// oversampled widens source fetches ahead of reranking so the reranker
// has candidates to promote.
func (p *Pipeline) oversampled(limit int) int {
	if !p.opts.Rerank.Enabled {
		return limit
	}
	fetch := limit * p.opts.Rerank.OversampleMultiplier
	if fetch > maxLimit {
		fetch = maxLimit
	}
	return fetch
}
