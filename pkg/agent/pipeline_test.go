package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanjosebrosas/second-brain/pkg/llm"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	a := New("recall", &scriptedLLM{})

	require.NoError(t, r.Register("recall", a, "retrieval"))

	err := r.Register("recall", a, "again")
	require.Error(t, err, "duplicate names rejected")

	got, err := r.Get("recall")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	r.Freeze()
	err = r.Register("late", a, "too late")
	assert.ErrorIs(t, err, ErrRegistryFrozen)

	// Lookups still work after freeze.
	got, err = r.Get("recall")
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, []string{"recall"}, r.Names())
}

func newPipelineRegistry(t *testing.T, learn, review *Agent) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register("learn", learn, "extract patterns"))
	require.NoError(t, r.Register("review", review, "score content"))
	r.Freeze()
	return r
}

// Scenario: learn then review — both keys present, no error entries.
func TestRunPipelineHappyPath(t *testing.T) {
	learn := New("learn", &scriptedLLM{script: []*llm.Completion{
		text(`{"patterns": [{"topic": "retries", "content": "use exponential backoff", "confidence": 0.6}], "summary": "one pattern"}`),
	}})
	learn.Validate = validateLearn

	review := New("review", &scriptedLLM{script: []*llm.Completion{
		text(`{"score": 8.1, "strengths": ["clear"], "improvements": ["add example"], "summary": "solid"}`),
	}})
	review.Validate = validateReview

	registry := newPipelineRegistry(t, learn, review)

	results := RunPipeline(context.Background(), registry, []Step{
		{Agent: "learn", Input: "we fixed flaky deploys by adding exponential backoff"},
		{Agent: "review", FromPrev: true},
	})

	require.Len(t, results, 2)
	learnResult, ok := results["learn"].(LearnResult)
	require.True(t, ok)
	assert.Len(t, learnResult.Patterns, 1)

	reviewResult, ok := results["review"].(ReviewResult)
	require.True(t, ok)
	assert.InDelta(t, 8.1, reviewResult.Score, 1e-9)
}

// Invariant: a failing step is reported as {"error": "Step failed: <Kind>"}
// with no trace of the original message.
func TestRunPipelineMasksErrors(t *testing.T) {
	// LLM client fails with its own error text ("script exhausted").
	failing := New("learn", &scriptedLLM{}) // empty script → error
	failing.Validate = validateLearn

	review := New("review", &scriptedLLM{script: []*llm.Completion{
		text(`{"score": 5, "strengths": [], "improvements": ["n/a"], "summary": "reviewed nothing"}`),
	}})
	review.Validate = validateReview

	registry := newPipelineRegistry(t, failing, review)

	results := RunPipeline(context.Background(), registry, []Step{
		{Agent: "learn", Input: "text"},
		{Agent: "review", FromPrev: true},
	})

	stepErr, ok := results["learn"].(StepError)
	require.True(t, ok)
	assert.Equal(t, "Step failed: Internal", stepErr.Error)
	assert.NotContains(t, stepErr.Error, "script exhausted")

	// Later steps still ran.
	_, ok = results["review"].(ReviewResult)
	assert.True(t, ok)
}

func TestRunPipelineUnknownAgent(t *testing.T) {
	registry := NewRegistry()
	registry.Freeze()

	results := RunPipeline(context.Background(), registry, []Step{{Agent: "ghost", Input: "x"}})
	stepErr, ok := results["ghost"].(StepError)
	require.True(t, ok)
	assert.Equal(t, "Step failed: NotFound", stepErr.Error)
}
