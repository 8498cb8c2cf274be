package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// countingEmbedder is a deterministic embedder double.
type countingEmbedder struct {
	calls int
	fail  bool
}

func (e *countingEmbedder) Embed(_ context.Context, content string, _ Modality) ([]float32, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("provider down")
	}
	vec := make([]float32, 4)
	for i, r := range content {
		vec[i%4] += float32(r)
	}
	return vec, nil
}

func (e *countingEmbedder) EmbedMultimodal(ctx context.Context, blocks []models.ContentBlock) ([]float32, error) {
	var flat string
	for _, b := range blocks {
		flat += b.Text + b.URL
	}
	return e.Embed(ctx, flat, ModalityText)
}

func (e *countingEmbedder) Dimension() int { return 4 }

func TestCacheEmbedsOncePerKey(t *testing.T) {
	inner := &countingEmbedder{}
	cache := NewCache(inner)

	v1, err := cache.Embed(context.Background(), "jwt auth", ModalityText)
	require.NoError(t, err)
	v2, err := cache.Embed(context.Background(), "jwt auth", ModalityText)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cache.ProviderCalls())

	// Different modality is a different key.
	_, err = cache.Embed(context.Background(), "jwt auth", ModalityImage)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCacheDoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{fail: true}
	cache := NewCache(inner)

	_, err := cache.Embed(context.Background(), "q", ModalityText)
	require.Error(t, err)

	inner.fail = false
	_, err = cache.Embed(context.Background(), "q", ModalityText)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestFallbackEmbedderUsesSecondary(t *testing.T) {
	primary := &countingEmbedder{fail: true}
	secondary := &countingEmbedder{}
	fb := NewFallbackEmbedder(primary, secondary)

	vec, err := fb.Embed(context.Background(), "q", ModalityText)
	require.NoError(t, err)
	assert.NotNil(t, vec)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackEmbedderWithoutSecondaryPropagates(t *testing.T) {
	fb := NewFallbackEmbedder(&countingEmbedder{fail: true}, nil)
	_, err := fb.Embed(context.Background(), "q", ModalityText)
	require.Error(t, err)
}

func newVoyageTestServer(t *testing.T, handler http.HandlerFunc) *VoyageClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVoyage(VoyageConfig{
		BaseURL:     srv.URL,
		APIKey:      "k",
		Model:       "voyage-multimodal-3",
		RerankModel: "rerank-2.5",
		Dimension:   1024,
	})
}

func TestVoyageRerankPreservesIDsAndScores(t *testing.T) {
	var gotBody map[string]any
	client := newVoyageTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/rerank", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 2, "relevance_score": 0.97},
				{"index": 0, "relevance_score": 0.41},
			},
		})
	})

	candidates := []Candidate{
		{ID: "a", Content: "first"},
		{ID: "b", Content: "second"},
		{ID: "c", Content: "third"},
	}
	ranked, err := client.Rerank(context.Background(), "q", candidates, 2, "prefer recent patterns")
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, "c", ranked[0].ID)
	assert.Equal(t, 0.97, ranked[0].Score)
	assert.Equal(t, "a", ranked[1].ID)

	assert.Equal(t, "prefer recent patterns", gotBody["instruction"])
}

func TestVoyageRerankOmitsEmptyInstruction(t *testing.T) {
	var gotBody map[string]any
	client := newVoyageTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	})

	_, err := client.Rerank(context.Background(), "q", []Candidate{{ID: "a", Content: "x"}}, 1, "")
	require.NoError(t, err)
	assert.NotContains(t, gotBody, "instruction")
}

func TestVoyageEmbedMultimodalBuildsComposition(t *testing.T) {
	var gotBody map[string]any
	client := newVoyageTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/multimodalembeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2}}},
		})
	})

	vec, err := client.EmbedMultimodal(context.Background(), []models.ContentBlock{
		{Type: models.BlockText, Text: "auth flow diagram"},
		{Type: models.BlockImage, URL: "https://example.com/a.png"},
	})
	require.NoError(t, err)
	assert.Len(t, vec, 2)

	inputs := gotBody["inputs"].([]any)
	require.Len(t, inputs, 1)
	content := inputs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
}
