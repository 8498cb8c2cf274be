package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
)

// FallbackClient tries the primary client, then each client in the
// configured fallback chain, in order. The first success wins.
type FallbackClient struct {
	primary Client
	chain   []Client
}

var _ Client = (*FallbackClient)(nil)

// NewFallbackClient wraps a primary with an ordered fallback chain.
func NewFallbackClient(primary Client, chain []Client) *FallbackClient {
	return &FallbackClient{primary: primary, chain: chain}
}

// Provider implements Client; it reports the primary's provider.
func (c *FallbackClient) Provider() config.ModelProvider { return c.primary.Provider() }

// Complete implements Client.
func (c *FallbackClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	out, err := c.primary.Complete(ctx, req)
	if err == nil {
		return out, nil
	}
	lastErr := err
	failed := c.primary.Provider()

	for _, fallback := range c.chain {
		slog.Warn("llm.provider.failed",
			"provider", failed,
			"next", fallback.Provider(),
			"error", lastErr)
		// Fallback providers use their own default models: the primary's
		// model name is meaningless to them.
		fbReq := req
		fbReq.Model = ""
		out, err = fallback.Complete(ctx, fbReq)
		if err == nil {
			return out, nil
		}
		lastErr = err
		failed = fallback.Provider()
	}
	return nil, fmt.Errorf("all providers in fallback chain failed: %w", lastErr)
}

// BuildClient assembles the configured client: resolved primary plus the
// fallback chain. Chain entries whose credentials are missing are skipped
// with a warning.
func BuildClient(cfg *config.Config) (Client, error) {
	provider, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	primary, err := NewClient(provider, cfg)
	if err != nil {
		return nil, err
	}

	var chain []Client
	for _, p := range cfg.ModelFallbackChain {
		if p == provider {
			continue
		}
		fb, err := NewClient(p, cfg)
		if err != nil {
			slog.Warn("llm.fallback.unavailable", "provider", p, "error", err)
			continue
		}
		chain = append(chain, fb)
	}
	if len(chain) == 0 {
		return primary, nil
	}
	return NewFallbackClient(primary, chain), nil
}
