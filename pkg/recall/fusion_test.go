package recall

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

func match(id, content string, source models.MatchSource, score float64) models.MemoryMatch {
	return models.MemoryMatch{ID: id, Content: content, Source: source, Score: score}
}

func TestFuseRRFScoresAndProvenance(t *testing.T) {
	bySource := map[string][]models.MemoryMatch{
		"mem0": {
			match("m1", "use refresh token rotation", models.SourceSemantic, 0.91),
			match("m2", "short-lived access tokens", models.SourceSemantic, 0.84),
		},
		"patterns": {
			match("p1", "use refresh token rotation", models.SourceVector, 0.71),
			match("p2", "validate issuer and audience", models.SourceVector, 0.66),
		},
	}

	fused := FuseRRF(bySource, 60)
	require.Len(t, fused, 3)

	// The duplicate fuses into one entry with both sources and the
	// higher-scoring source tag.
	top := fused[0]
	assert.Equal(t, "use refresh token rotation", top.Content)
	assert.Equal(t, models.SourceSemantic, top.Source)
	assert.Equal(t, []string{"mem0", "patterns"}, top.Sources)
	assert.InDelta(t, 1.0/61+1.0/61, top.Score, 1e-9)

	// Singles keep their single-source contribution.
	assert.InDelta(t, 1.0/62, fused[1].Score, 1e-9)
}

func TestFuseRRFDeterministic(t *testing.T) {
	bySource := map[string][]models.MemoryMatch{
		"examples":  {match("e1", "alpha", models.SourceVector, 0.5), match("e2", "beta", models.SourceVector, 0.4)},
		"knowledge": {match("k1", "gamma", models.SourceVector, 0.5)},
		"mem0":      {match("m1", "delta", models.SourceSemantic, 0.9)},
	}

	first := FuseRRF(bySource, 60)
	for i := 0; i < 20; i++ {
		again := FuseRRF(bySource, 60)
		require.Equal(t, first, again, "fusion order must be deterministic")
	}
}

func TestFuseRRFTieBreaksOnID(t *testing.T) {
	// Two items at the same rank in different sources: identical fused
	// scores, so order falls back to ID.
	bySource := map[string][]models.MemoryMatch{
		"a": {match("zzz", "content one", models.SourceVector, 0.5)},
		"b": {match("aaa", "content two", models.SourceVector, 0.5)},
	}
	fused := FuseRRF(bySource, 60)
	require.Len(t, fused, 2)
	assert.Equal(t, "aaa", fused[0].ID)
}

func TestDeduplicateKeepsHighestScorer(t *testing.T) {
	rerankHigh := 0.9
	rerankLow := 0.3
	matches := []models.MemoryMatch{
		{ID: "a", Content: "Rate Limiting 101", Score: 0.02, RerankScore: &rerankLow},
		{ID: "b", Content: "different content", Score: 0.01},
		// Same content as "a" modulo case/whitespace: same identity.
		{ID: "c", Content: "  rate   limiting 101 ", Score: 0.01, RerankScore: &rerankHigh},
	}

	out := Deduplicate(matches)
	require.Len(t, out, 2)

	// Winner is the higher rerank score, in the first occurrence's slot.
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
}

func TestDeduplicateFallsBackToFusedScore(t *testing.T) {
	matches := []models.MemoryMatch{
		{ID: "a", Content: "same thing", Score: 0.01},
		{ID: "b", Content: "same thing", Score: 0.05},
	}
	out := Deduplicate(matches)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}

func TestDeduplicatePreservesOrder(t *testing.T) {
	matches := []models.MemoryMatch{
		{ID: "1", Content: "first", Score: 0.5},
		{ID: "2", Content: "second", Score: 0.4},
		{ID: "3", Content: "first", Score: 0.1}, // duplicate, loses
		{ID: "4", Content: "third", Score: 0.3},
	}
	out := Deduplicate(matches)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"1", "2", "4"}, []string{out[0].ID, out[1].ID, out[2].ID})
}

func TestGatherIsolatesFailures(t *testing.T) {
	sources := []Source{
		{Name: "ok", Search: func(context.Context) ([]models.MemoryMatch, error) {
			return []models.MemoryMatch{match("a", "x", models.SourceSemantic, 0.9)}, nil
		}},
		{Name: "down", Search: func(context.Context) ([]models.MemoryMatch, error) {
			return nil, errors.New("connection refused")
		}},
	}

	results := Gather(context.Background(), sources, time.Second)
	require.Len(t, results, 2)
	assert.Len(t, results["ok"], 1)
	assert.Empty(t, results["down"])
}

func TestGatherPerSourceTimeout(t *testing.T) {
	sources := []Source{
		{Name: "fast", Search: func(context.Context) ([]models.MemoryMatch, error) {
			return []models.MemoryMatch{match("a", "x", models.SourceSemantic, 0.9)}, nil
		}},
		{Name: "slow", Search: func(ctx context.Context) ([]models.MemoryMatch, error) {
			select {
			case <-time.After(5 * time.Second):
				return []models.MemoryMatch{match("b", "y", models.SourceVector, 0.8)}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}},
	}

	start := time.Now()
	results := Gather(context.Background(), sources, 50*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, results["fast"], 1)
	assert.Empty(t, results["slow"])
}

func TestFormat(t *testing.T) {
	rs := 0.92
	matches := []models.MemoryMatch{
		{Source: models.SourceSemantic, Content: "token rotation", Score: 0.031, RerankScore: &rs},
		{Source: models.SourceVector, Content: "issuer validation", Score: 0.016},
	}

	out := Format(matches)
	assert.Contains(t, out, "## Semantic Memory")
	assert.Contains(t, out, "## Vector Store")
	assert.Contains(t, out, "rerank 0.92")
	assert.Contains(t, out, "score 0.016")
	assert.True(t, strings.Index(out, "Semantic Memory") < strings.Index(out, "Vector Store"))

	assert.Equal(t, "No relevant memories found.", Format(nil))
}
