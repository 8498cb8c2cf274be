package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/llm"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// scriptedLLM replays a fixed sequence of completions and records the
// conversation it was given.
type scriptedLLM struct {
	script   []*llm.Completion
	requests []llm.Request
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	s.requests = append(s.requests, req)
	if len(s.script) == 0 {
		return nil, errors.New("script exhausted")
	}
	next := s.script[0]
	s.script = s.script[1:]
	return next, nil
}

func (s *scriptedLLM) Provider() config.ModelProvider { return config.ModelProviderAnthropic }

func text(t string) *llm.Completion { return &llm.Completion{Text: t} }

func toolCall(id, name, args string) *llm.Completion {
	return &llm.Completion{ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

// Invariant: a tool whose implementation raises surfaces to the agent as
// {"error": "<tool>: <Kind>"} — never as a raised error.
func TestToolErrorEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{"invalid input", fmt.Errorf("%w: bad args", services.ErrInvalidInput), "InvalidInput"},
		{"not found", fmt.Errorf("%w: nope", services.ErrNotFound), "NotFound"},
		{"conflict", fmt.Errorf("%w: dup", services.ErrConflict), "Conflict"},
		{"unavailable", fmt.Errorf("%w: db", services.ErrUnavailable), "Unavailable"},
		{"timeout", fmt.Errorf("%w: slow", services.ErrTimeout), "Timeout"},
		{"unclassified with secrets", errors.New("postgres://user:hunter2@db/brain failed"), "Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := &Tool{
				Name: "search",
				Handler: func(context.Context, json.RawMessage) (any, error) {
					return nil, tt.err
				},
			}
			out, isError := tool.Invoke(context.Background(), nil)
			require.True(t, isError)

			var envelope Envelope
			require.NoError(t, json.Unmarshal([]byte(out), &envelope))
			assert.Equal(t, "search: "+tt.wantKind, envelope["error"])
			assert.NotContains(t, out, "hunter2", "raw error text must not leak")
		})
	}
}

func TestToolPanicBecomesEnvelope(t *testing.T) {
	tool := &Tool{
		Name: "explode",
		Handler: func(context.Context, json.RawMessage) (any, error) {
			panic("boom with secret sk-ant-12345")
		},
	}
	out, isError := tool.Invoke(context.Background(), nil)
	require.True(t, isError)
	assert.Contains(t, out, "explode: Internal")
	assert.NotContains(t, out, "sk-ant")
}

func TestAgentToolLoopFeedsEnvelopeBack(t *testing.T) {
	client := &scriptedLLM{script: []*llm.Completion{
		toolCall("c1", "search", `{"q":"x"}`),
		text(`{"answer": "nothing stored on that"}`),
	}}
	a := New("recall", client)
	a.Tools = []*Tool{{
		Name: "search",
		Handler: func(context.Context, json.RawMessage) (any, error) {
			return nil, fmt.Errorf("%w: provider down", services.ErrUnavailable)
		},
	}}
	a.Validate = validateRecall

	result, err := a.Run(context.Background(), "find x")
	require.NoError(t, err)
	assert.Equal(t, "nothing stored on that", result.(RecallResult).Answer)

	// The second request carries the envelope as a tool message.
	require.Len(t, client.requests, 2)
	toolMsg := client.requests[1].Messages[2]
	assert.Equal(t, llm.RoleTool, toolMsg.Role)
	assert.Contains(t, toolMsg.Content, `"error":"search: Unavailable"`)
}

func TestAgentValidationRetriesBounded(t *testing.T) {
	client := &scriptedLLM{script: []*llm.Completion{
		text("not json at all"),
		text("still not json"),
		text("third strike"),
		text("never reached"),
	}}
	a := New("review", client)
	a.Validate = validateReview

	_, err := a.Run(context.Background(), "review this")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	// Initial attempt + exactly two retries.
	assert.Len(t, client.requests, 3)
}

func TestAgentValidationRetrySucceeds(t *testing.T) {
	client := &scriptedLLM{script: []*llm.Completion{
		text(`{"score": 14, "strengths": [], "improvements": ["x"], "summary": "s"}`),
		text(`{"score": 8.1, "strengths": ["tight"], "improvements": ["shorten intro"], "summary": "good"}`),
	}}
	a := New("review", client)
	a.Validate = validateReview

	result, err := a.Run(context.Background(), "review this")
	require.NoError(t, err)
	assert.InDelta(t, 8.1, result.(ReviewResult).Score, 1e-9)

	// Retry guidance was delivered as a user message.
	last := client.requests[1].Messages
	assert.Contains(t, last[len(last)-1].Content, "rejected")
	assert.Contains(t, last[len(last)-1].Content, "outside [0,10]")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a": 1}`, `{"a": 1}`, true},
		{"Here you go:\n```json\n{\"a\": {\"b\": 2}}\n```", `{"a": {"b": 2}}`, true},
		{`prefix {"s": "with \" escaped {brace}"} suffix`, `{"s": "with \" escaped {brace}"}`, true},
		{"no json here", "", false},
		{`{"unterminated": true`, "", false},
	}
	for _, tt := range tests {
		got, err := ExtractJSON(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}
