package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/llm"
	"github.com/ryanjosebrosas/second-brain/pkg/memory"
)

func testFleet(t *testing.T, client llm.Client, cfg *config.Config) *Registry {
	t.Helper()
	registry, err := BuildRegistry(Services{
		Memory: memory.NewStub(),
		LLM:    client,
		Config: cfg,
	})
	require.NoError(t, err)
	return registry
}

func TestBuildRegistryRoster(t *testing.T) {
	registry := testFleet(t, &scriptedLLM{}, nil)

	want := []string{
		"chief-of-staff", "clarity", "coach", "create", "email", "hook-writer",
		"learn", "pmo", "recall", "review", "specialist", "synthesizer",
		"template-builder",
	}
	assert.Equal(t, want, registry.Names())

	// Frozen after build.
	err := registry.Register("extra", New("extra", &scriptedLLM{}), "x")
	assert.ErrorIs(t, err, ErrRegistryFrozen)
}

func TestChiefOfStaffRoutesViaRegistry(t *testing.T) {
	client := &scriptedLLM{script: []*llm.Completion{
		text(`{"agent": "learn", "input": "extract patterns from this retro", "rationale": "pattern extraction request"}`),
	}}
	registry := testFleet(t, client, nil)

	chief, err := registry.Get("chief-of-staff")
	require.NoError(t, err)

	result, err := chief.Run(context.Background(), "here's our retro, what should we remember?")
	require.NoError(t, err)
	route := result.(RouteResult)
	assert.Equal(t, "learn", route.Agent)
}

func TestChiefOfStaffRejectsUnknownRoute(t *testing.T) {
	client := &scriptedLLM{script: []*llm.Completion{
		text(`{"agent": "nonexistent", "input": "x", "rationale": "r"}`),
		text(`{"agent": "recall", "input": "x", "rationale": "corrected"}`),
	}}
	registry := testFleet(t, client, nil)

	chief, err := registry.Get("chief-of-staff")
	require.NoError(t, err)

	result, err := chief.Run(context.Background(), "find my notes")
	require.NoError(t, err)
	assert.Equal(t, "recall", result.(RouteResult).Agent)
}

func TestAgentModelOverridesApplied(t *testing.T) {
	cfg := &config.Config{
		AgentModelOverrides: map[string]config.ModelOverride{
			"recall": {Provider: config.ModelProviderGroq, Model: "llama-3.3-70b-versatile"},
		},
	}
	registry := testFleet(t, &scriptedLLM{}, cfg)

	recallAgent, err := registry.Get("recall")
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile", recallAgent.Model)

	other, err := registry.Get("review")
	require.NoError(t, err)
	assert.Empty(t, other.Model)
}
