package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
)

type scriptedClient struct {
	provider config.ModelProvider
	fail     bool
	calls    int
	lastReq  Request
}

func (c *scriptedClient) Complete(_ context.Context, req Request) (*Completion, error) {
	c.calls++
	c.lastReq = req
	if c.fail {
		return nil, errors.New("provider unavailable")
	}
	return &Completion{Text: string(c.provider) + " says hi"}, nil
}

func (c *scriptedClient) Provider() config.ModelProvider { return c.provider }

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	primary := &scriptedClient{provider: config.ModelProviderAnthropic}
	fallback := &scriptedClient{provider: config.ModelProviderOpenAI}
	client := NewFallbackClient(primary, []Client{fallback})

	out, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "anthropic says hi", out.Text)
	assert.Zero(t, fallback.calls)
}

func TestFallbackClientChainsInOrder(t *testing.T) {
	primary := &scriptedClient{provider: config.ModelProviderAnthropic, fail: true}
	second := &scriptedClient{provider: config.ModelProviderOpenAI, fail: true}
	third := &scriptedClient{provider: config.ModelProviderGroq}
	client := NewFallbackClient(primary, []Client{second, third})

	out, err := client.Complete(context.Background(), Request{
		Model:    "claude-sonnet-4-5",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "groq says hi", out.Text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, second.calls)

	// The primary's model name is not forwarded to other providers.
	assert.Empty(t, third.lastReq.Model)
}

func TestFallbackClientAllFail(t *testing.T) {
	primary := &scriptedClient{provider: config.ModelProviderAnthropic, fail: true}
	fallback := &scriptedClient{provider: config.ModelProviderOpenAI, fail: true}
	client := NewFallbackClient(primary, []Client{fallback})

	_, err := client.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback chain failed")
}

func TestResolveAuto(t *testing.T) {
	cfg := &config.Config{ModelProvider: config.ModelProviderAuto, AnthropicAPIKey: "k"}
	p, err := Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.ModelProviderAnthropic, p)

	cfg = &config.Config{ModelProvider: config.ModelProviderAuto, GroqAPIKey: "k"}
	p, err = Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.ModelProviderGroq, p)

	cfg = &config.Config{ModelProvider: config.ModelProviderAuto}
	p, err = Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.ModelProviderOllamaLocal, p)

	// Explicit provider wins over auto-detection.
	cfg = &config.Config{ModelProvider: config.ModelProviderOpenAI, AnthropicAPIKey: "k"}
	p, err = Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.ModelProviderOpenAI, p)
}
