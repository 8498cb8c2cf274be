package recall

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/embedding"
	"github.com/ryanjosebrosas/second-brain/pkg/memory"
	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// fakeMemory serves canned semantic matches. Embedding the stub keeps the
// full Service contract satisfied without restating it.
type fakeMemory struct {
	*memory.StubService
	matches  []models.MemoryMatch
	searches int
}

func (f *fakeMemory) Search(_ context.Context, _, _ string, limit int, _ memory.SearchOptions) ([]models.MemoryMatch, error) {
	f.searches++
	if limit < len(f.matches) {
		return f.matches[:limit], nil
	}
	return f.matches, nil
}

// fakeStore serves canned hybrid results per table and records calls.
type fakeStore struct {
	byTable map[string][]models.MemoryMatch
	calls   []string
	fail    bool
}

func (f *fakeStore) HybridSearch(_ context.Context, table, _, _ string, _ []float32, limit int, _ float64) ([]models.MemoryMatch, error) {
	f.calls = append(f.calls, table)
	if f.fail {
		return nil, errors.New("rpc failed")
	}
	matches := f.byTable[table]
	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

// countingEmbedder counts provider invocations.
type countingEmbedder struct {
	calls int
	fail  bool
}

func (e *countingEmbedder) Embed(context.Context, string, embedding.Modality) ([]float32, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("embedder down")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *countingEmbedder) EmbedMultimodal(context.Context, []models.ContentBlock) ([]float32, error) {
	e.calls++
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *countingEmbedder) Dimension() int { return 3 }

// scriptedReranker returns candidates in reverse order with descending
// scores, or fails on demand.
type scriptedReranker struct {
	calls           int
	lastInstruction string
	fail            bool
}

func (r *scriptedReranker) Rerank(_ context.Context, _ string, candidates []embedding.Candidate, topK int, instruction string) ([]embedding.RankedCandidate, error) {
	r.calls++
	r.lastInstruction = instruction
	if r.fail {
		return nil, errors.New("reranker down")
	}
	var out []embedding.RankedCandidate
	score := 0.99
	for i := len(candidates) - 1; i >= 0 && len(out) < topK; i-- {
		out = append(out, embedding.RankedCandidate{ID: candidates[i].ID, Score: score})
		score -= 0.05
	}
	return out, nil
}

func newTestPipeline(mem *fakeMemory, store *fakeStore, emb embedding.Embedder, rr embedding.Reranker, rerankEnabled bool) *Pipeline {
	return New(mem, store, nil, emb, rr, Options{
		UserID:      "u1",
		SearchLimit: 10,
		Rerank: config.RerankConfig{
			Enabled:              rerankEnabled,
			TopK:                 10,
			OversampleMultiplier: 3,
		},
		Hybrid: config.HybridConfig{RRFK: 60},
	})
}

const simpleQuery = "JWT auth patterns"
const complexQuery = "Compare JWT vs session auth, show examples, list gotchas"

func semanticResults() []models.MemoryMatch {
	return []models.MemoryMatch{
		{ID: "m1", Source: models.SourceSemantic, Content: "use refresh token rotation", Score: 0.91},
		{ID: "m2", Source: models.SourceSemantic, Content: "short-lived access tokens", Score: 0.84},
	}
}

func patternResults() []models.MemoryMatch {
	return []models.MemoryMatch{
		{ID: "p1", Source: models.SourceVector, Content: "use refresh token rotation", Score: 0.71},
		{ID: "p2", Source: models.SourceVector, Content: "validate issuer and audience", Score: 0.66},
		{ID: "p3", Source: models.SourceVector, Content: "rotate signing keys quarterly", Score: 0.52},
	}
}

// Scenario: simple query, rerank disabled, one exact duplicate across
// sources → 4 matches, first tagged mem0, embedder called exactly once.
func TestQuickRecallSimpleScenario(t *testing.T) {
	mem := &fakeMemory{StubService: memory.NewStub(), matches: semanticResults()}
	store := &fakeStore{byTable: map[string][]models.MemoryMatch{"patterns": patternResults()}}
	emb := &countingEmbedder{}
	p := newTestPipeline(mem, store, emb, nil, false)

	matches, err := p.QuickRecall(context.Background(), simpleQuery, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, emb.calls, "simple path embeds exactly once")
	assert.Equal(t, []string{"patterns"}, store.calls, "quick path gathers only the patterns hybrid")
	assert.Equal(t, 1, mem.searches)

	require.Len(t, matches, 4, "duplicate across sources collapses")
	assert.Equal(t, models.SourceSemantic, matches[0].Source)
	assert.Equal(t, []string{"mem0", "patterns"}, matches[0].Sources)
}

// Invariant: complex queries must not embed in the quick path; the deep
// path embeds at most once.
func TestQuickRecallComplexRoutesDeepWithSingleEmbed(t *testing.T) {
	mem := &fakeMemory{StubService: memory.NewStub(), matches: semanticResults()}
	store := &fakeStore{byTable: map[string][]models.MemoryMatch{
		"patterns":    patternResults(),
		"examples":    {{ID: "e1", Source: models.SourceVector, Content: "code sample: middleware", Score: 0.6}},
		"knowledge":   {{ID: "k1", Source: models.SourceVector, Content: "jwt vs session tradeoffs", Score: 0.5}},
		"experiences": {{ID: "x1", Source: models.SourceVector, Content: "we migrated to jwt in march", Score: 0.4}},
	}}
	emb := &countingEmbedder{}
	rr := &scriptedReranker{}
	p := newTestPipeline(mem, store, emb, rr, true)

	matches, err := p.QuickRecall(context.Background(), complexQuery, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, emb.calls, "embedding computed at most once across routing")
	assert.ElementsMatch(t, []string{"patterns", "examples", "knowledge", "experiences"}, store.calls)
	assert.Len(t, matches, 5)
	assert.Equal(t, 1, rr.calls)
}

// Scenario: deep recall with an instruction reaches the reranker, sets
// rerank scores, and preserves fused scores.
func TestRecallDeepWithInstruction(t *testing.T) {
	mem := &fakeMemory{StubService: memory.NewStub(), matches: semanticResults()}
	store := &fakeStore{byTable: map[string][]models.MemoryMatch{"patterns": patternResults()}}
	rr := &scriptedReranker{}
	p := newTestPipeline(mem, store, &countingEmbedder{}, rr, true)

	matches, err := p.RecallDeepCached(context.Background(), simpleQuery, 4,
		"prefer pattern matches with code examples", embedding.NewCache(&countingEmbedder{}))
	require.NoError(t, err)

	assert.Equal(t, "prefer pattern matches with code examples", rr.lastInstruction)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		require.NotNil(t, m.RerankScore, "rerank scores set on every surviving match")
		assert.Greater(t, m.Score, 0.0, "fused score preserved alongside rerank score")
	}
}

// Invariant: limit is clamped to [1, 100] for any input.
func TestRecallLimitClamping(t *testing.T) {
	var many []models.MemoryMatch
	for i := 0; i < 150; i++ {
		many = append(many, models.MemoryMatch{
			ID:      string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Source:  models.SourceSemantic,
			Content: "unique content number " + string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Score:   1.0 - float64(i)*0.001,
		})
	}
	mem := &fakeMemory{StubService: memory.NewStub(), matches: many}
	store := &fakeStore{byTable: map[string][]models.MemoryMatch{}}
	p := newTestPipeline(mem, store, &countingEmbedder{}, nil, false)

	for _, limit := range []int{-3, 0, 1, 5, 10000} {
		matches, err := p.QuickRecall(context.Background(), simpleQuery, limit)
		require.NoError(t, err)
		want := ClampLimit(limit)
		if limit == 0 {
			want = 10 // configured default
		}
		assert.LessOrEqual(t, len(matches), want, "limit %d", limit)
	}
}

// Invariant: identical calls with deterministic sources produce identical
// ordering.
func TestRecallDeterministicOrdering(t *testing.T) {
	mem := &fakeMemory{StubService: memory.NewStub(), matches: semanticResults()}
	store := &fakeStore{byTable: map[string][]models.MemoryMatch{"patterns": patternResults()}}
	p := newTestPipeline(mem, store, &countingEmbedder{}, nil, false)

	first, err := p.QuickRecall(context.Background(), simpleQuery, 5)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := p.QuickRecall(context.Background(), simpleQuery, 5)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// A failing source degrades to its empty fallback without aborting.
func TestRecallSourceFailureDegrades(t *testing.T) {
	mem := &fakeMemory{StubService: memory.NewStub(), matches: semanticResults()}
	store := &fakeStore{fail: true}
	p := newTestPipeline(mem, store, &countingEmbedder{}, nil, false)

	matches, err := p.QuickRecall(context.Background(), simpleQuery, 5)
	require.NoError(t, err)
	assert.Len(t, matches, 2, "semantic results survive the storage outage")
}

// A failing embedder degrades the call to text-only sources.
func TestRecallEmbedFailureDegrades(t *testing.T) {
	mem := &fakeMemory{StubService: memory.NewStub(), matches: semanticResults()}
	store := &fakeStore{byTable: map[string][]models.MemoryMatch{"patterns": patternResults()}}
	p := newTestPipeline(mem, store, &countingEmbedder{fail: true}, nil, false)

	matches, err := p.QuickRecall(context.Background(), simpleQuery, 5)
	require.NoError(t, err)
	assert.Empty(t, store.calls, "no hybrid search without an embedding")
	assert.Len(t, matches, 2)
}

// Rerank failure falls back to fused order with no rerank scores.
func TestRerankFailureFallsBackToFusedOrder(t *testing.T) {
	mem := &fakeMemory{StubService: memory.NewStub(), matches: semanticResults()}
	store := &fakeStore{byTable: map[string][]models.MemoryMatch{"patterns": patternResults()}}
	rr := &scriptedReranker{fail: true}
	p := newTestPipeline(mem, store, &countingEmbedder{}, rr, true)

	matches, err := p.QuickRecall(context.Background(), simpleQuery, 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, 1, rr.calls)
	for _, m := range matches {
		assert.Nil(t, m.RerankScore)
	}
	assert.Equal(t, models.SourceSemantic, matches[0].Source)
}

// A shared cache across quick and deep means one embed per top-level call.
func TestSharedCacheAcrossCalls(t *testing.T) {
	mem := &fakeMemory{StubService: memory.NewStub(), matches: semanticResults()}
	store := &fakeStore{byTable: map[string][]models.MemoryMatch{"patterns": patternResults()}}
	emb := &countingEmbedder{}
	p := newTestPipeline(mem, store, emb, nil, false)

	cache := embedding.NewCache(emb)
	_, err := p.QuickRecallCached(context.Background(), simpleQuery, 5, cache)
	require.NoError(t, err)
	_, err = p.RecallDeepCached(context.Background(), simpleQuery, 5, "", cache)
	require.NoError(t, err)

	assert.Equal(t, 1, emb.calls, "same query embeds once across quick and deep phases")
}
