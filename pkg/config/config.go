// Package config loads and validates the Second Brain configuration from
// environment variables. A single Config object is constructed at startup
// and threaded through the dependency container; nothing reads the
// environment after initialization.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// MemoryProvider selects the concrete memory service implementation.
type MemoryProvider string

const (
	MemoryProviderSemantic MemoryProvider = "semantic"
	MemoryProviderGraph    MemoryProvider = "graph"
	MemoryProviderNone     MemoryProvider = "none"
)

// ModelProvider selects the LLM backend for agents.
type ModelProvider string

const (
	ModelProviderAuto        ModelProvider = "auto"
	ModelProviderAnthropic   ModelProvider = "anthropic"
	ModelProviderOpenAI      ModelProvider = "openai"
	ModelProviderGroq        ModelProvider = "groq"
	ModelProviderOllamaLocal ModelProvider = "ollama-local"
	ModelProviderOllamaCloud ModelProvider = "ollama-cloud"
)

// ModelOverride sets the model for one agent. Only Model is applied: the
// agent keeps the default LLM client, and Provider does not select a
// different one.
type ModelOverride struct {
	Provider ModelProvider `json:"provider"`
	Model    string        `json:"model,omitempty"`
}

// HybridConfig groups the hybrid-search RPC tuning knobs.
type HybridConfig struct {
	RRFK           int     // RRF constant k (default 60)
	ScoreThreshold float64 // minimum fused score to return
	BM25Weight     float64
	VectorWeight   float64
}

// RerankConfig groups the rerank pipeline settings.
type RerankConfig struct {
	Enabled              bool
	Model                string
	TopK                 int
	OversampleMultiplier int
}

// Config is the umbrella configuration object for the whole process.
// It is immutable after Load returns.
type Config struct {
	// Owner scope for all operations (BRAIN_USER_ID).
	UserID string

	// Postgres connection string (DATABASE_URL).
	DatabaseURL string

	MemoryProvider MemoryProvider
	ModelProvider  ModelProvider

	// Ordered list of providers to try when the primary fails.
	ModelFallbackChain []ModelProvider

	// Per-agent provider/model overrides, keyed by agent name.
	AgentModelOverrides map[string]ModelOverride

	// Default number of results returned by searches.
	MemorySearchLimit int

	Rerank RerankConfig
	Hybrid HybridConfig

	// Idle threshold after which long-lived memory clients reconnect.
	IdleReconnect time.Duration

	// Per-tool and top-level operation deadlines.
	ToolTimeout      time.Duration
	OperationTimeout time.Duration

	// Embedding provider settings.
	EmbeddingModel     string
	EmbeddingDimension int

	// Provider credentials and endpoints. Empty means the provider is
	// unavailable; "auto" selection skips it.
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GroqAPIKey      string
	VoyageAPIKey    string
	SemanticAPIKey  string
	SemanticBaseURL string
	GraphBaseURL    string
	OllamaHost      string

	// REST gate; empty disables API-key checking.
	APIKey string

	// HTTP listen port.
	HTTPPort string

	// Directory holding optional seed files (content-types.yaml).
	ConfigDir string
}

// knownKeys is the set of recognized BRAIN_-prefixed environment variables.
// Anything else with the prefix is ignored with a warning.
var knownKeys = map[string]bool{
	"BRAIN_USER_ID":                      true,
	"BRAIN_MEMORY_PROVIDER":              true,
	"BRAIN_MODEL_PROVIDER":               true,
	"BRAIN_MODEL_FALLBACK_CHAIN":         true,
	"BRAIN_AGENT_MODEL_OVERRIDES":        true,
	"BRAIN_MEMORY_SEARCH_LIMIT":          true,
	"BRAIN_RERANK_ENABLED":               true,
	"BRAIN_RERANK_MODEL":                 true,
	"BRAIN_RERANK_TOP_K":                 true,
	"BRAIN_RERANK_OVERSAMPLE_MULTIPLIER": true,
	"BRAIN_HYBRID_RRF_K":                 true,
	"BRAIN_HYBRID_SCORE_THRESHOLD":       true,
	"BRAIN_HYBRID_BM25_WEIGHT":           true,
	"BRAIN_HYBRID_VECTOR_WEIGHT":         true,
	"BRAIN_IDLE_RECONNECT_SECONDS":       true,
	"BRAIN_TOOL_TIMEOUT_SECONDS":         true,
	"BRAIN_OPERATION_TIMEOUT_SECONDS":    true,
	"BRAIN_EMBEDDING_MODEL":              true,
	"BRAIN_EMBEDDING_DIMENSION":          true,
	"BRAIN_SEMANTIC_BASE_URL":            true,
	"BRAIN_GRAPH_BASE_URL":               true,
	"BRAIN_API_KEY":                      true,
	"BRAIN_HTTP_PORT":                    true,
	"BRAIN_CONFIG_DIR":                   true,
}

// Load reads configuration from the environment, applies defaults, and
// validates required keys. Missing DATABASE_URL or BRAIN_USER_ID aborts
// with a clear error; unknown BRAIN_* keys are ignored with a warning.
func Load() (*Config, error) {
	warnUnknownKeys()

	cfg := defaults()

	cfg.UserID = os.Getenv("BRAIN_USER_ID")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if v := os.Getenv("BRAIN_MEMORY_PROVIDER"); v != "" {
		cfg.MemoryProvider = MemoryProvider(v)
	}
	if v := os.Getenv("BRAIN_MODEL_PROVIDER"); v != "" {
		cfg.ModelProvider = ModelProvider(v)
	}
	if v := os.Getenv("BRAIN_MODEL_FALLBACK_CHAIN"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.ModelFallbackChain = append(cfg.ModelFallbackChain, ModelProvider(p))
			}
		}
	}
	if v := os.Getenv("BRAIN_AGENT_MODEL_OVERRIDES"); v != "" {
		overrides := map[string]ModelOverride{}
		if err := json.Unmarshal([]byte(v), &overrides); err != nil {
			return nil, fmt.Errorf("%w: BRAIN_AGENT_MODEL_OVERRIDES is not valid JSON: %v", ErrInvalidConfig, err)
		}
		cfg.AgentModelOverrides = overrides
	}

	var err error
	if cfg.MemorySearchLimit, err = intEnv("BRAIN_MEMORY_SEARCH_LIMIT", cfg.MemorySearchLimit); err != nil {
		return nil, err
	}
	if cfg.Rerank.Enabled, err = boolEnv("BRAIN_RERANK_ENABLED", cfg.Rerank.Enabled); err != nil {
		return nil, err
	}
	if v := os.Getenv("BRAIN_RERANK_MODEL"); v != "" {
		cfg.Rerank.Model = v
	}
	if cfg.Rerank.TopK, err = intEnv("BRAIN_RERANK_TOP_K", cfg.Rerank.TopK); err != nil {
		return nil, err
	}
	if cfg.Rerank.OversampleMultiplier, err = intEnv("BRAIN_RERANK_OVERSAMPLE_MULTIPLIER", cfg.Rerank.OversampleMultiplier); err != nil {
		return nil, err
	}
	if cfg.Hybrid.RRFK, err = intEnv("BRAIN_HYBRID_RRF_K", cfg.Hybrid.RRFK); err != nil {
		return nil, err
	}
	if cfg.Hybrid.ScoreThreshold, err = floatEnv("BRAIN_HYBRID_SCORE_THRESHOLD", cfg.Hybrid.ScoreThreshold); err != nil {
		return nil, err
	}
	if cfg.Hybrid.BM25Weight, err = floatEnv("BRAIN_HYBRID_BM25_WEIGHT", cfg.Hybrid.BM25Weight); err != nil {
		return nil, err
	}
	if cfg.Hybrid.VectorWeight, err = floatEnv("BRAIN_HYBRID_VECTOR_WEIGHT", cfg.Hybrid.VectorWeight); err != nil {
		return nil, err
	}

	idleSeconds, err := intEnv("BRAIN_IDLE_RECONNECT_SECONDS", int(cfg.IdleReconnect/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.IdleReconnect = time.Duration(idleSeconds) * time.Second

	toolSeconds, err := intEnv("BRAIN_TOOL_TIMEOUT_SECONDS", int(cfg.ToolTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.ToolTimeout = time.Duration(toolSeconds) * time.Second

	opSeconds, err := intEnv("BRAIN_OPERATION_TIMEOUT_SECONDS", int(cfg.OperationTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.OperationTimeout = time.Duration(opSeconds) * time.Second

	if v := os.Getenv("BRAIN_EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if cfg.EmbeddingDimension, err = intEnv("BRAIN_EMBEDDING_DIMENSION", cfg.EmbeddingDimension); err != nil {
		return nil, err
	}

	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	cfg.VoyageAPIKey = os.Getenv("VOYAGE_API_KEY")
	cfg.SemanticAPIKey = os.Getenv("MEM0_API_KEY")
	if v := os.Getenv("BRAIN_SEMANTIC_BASE_URL"); v != "" {
		cfg.SemanticBaseURL = v
	}
	if v := os.Getenv("BRAIN_GRAPH_BASE_URL"); v != "" {
		cfg.GraphBaseURL = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.OllamaHost = v
	}
	cfg.APIKey = os.Getenv("BRAIN_API_KEY")
	if v := os.Getenv("BRAIN_HTTP_PORT"); v != "" {
		cfg.HTTPPort = v
	}
	if v := os.Getenv("BRAIN_CONFIG_DIR"); v != "" {
		cfg.ConfigDir = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required keys and enum values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL is required", ErrMissingConfig)
	}
	if c.UserID == "" {
		return fmt.Errorf("%w: BRAIN_USER_ID is required", ErrMissingConfig)
	}
	switch c.MemoryProvider {
	case MemoryProviderSemantic, MemoryProviderGraph, MemoryProviderNone:
	default:
		return fmt.Errorf("%w: BRAIN_MEMORY_PROVIDER %q (want semantic, graph, or none)", ErrInvalidConfig, c.MemoryProvider)
	}
	if !validModelProvider(c.ModelProvider) {
		return fmt.Errorf("%w: BRAIN_MODEL_PROVIDER %q", ErrInvalidConfig, c.ModelProvider)
	}
	for _, p := range c.ModelFallbackChain {
		if !validModelProvider(p) || p == ModelProviderAuto {
			return fmt.Errorf("%w: BRAIN_MODEL_FALLBACK_CHAIN entry %q", ErrInvalidConfig, p)
		}
	}
	if c.MemorySearchLimit <= 0 {
		return fmt.Errorf("%w: BRAIN_MEMORY_SEARCH_LIMIT must be positive", ErrInvalidConfig)
	}
	if c.Hybrid.RRFK <= 0 {
		return fmt.Errorf("%w: BRAIN_HYBRID_RRF_K must be positive", ErrInvalidConfig)
	}
	if c.Rerank.OversampleMultiplier < 1 {
		return fmt.Errorf("%w: BRAIN_RERANK_OVERSAMPLE_MULTIPLIER must be at least 1", ErrInvalidConfig)
	}
	return nil
}

func validModelProvider(p ModelProvider) bool {
	switch p {
	case ModelProviderAuto, ModelProviderAnthropic, ModelProviderOpenAI,
		ModelProviderGroq, ModelProviderOllamaLocal, ModelProviderOllamaCloud:
		return true
	}
	return false
}

func warnUnknownKeys() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "BRAIN_") && !knownKeys[key] {
			slog.Warn("Ignoring unknown configuration key", "key", key)
		}
	}
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, v)
	}
	return f, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, v)
	}
	return b, nil
}
