package config

import "time"

// Default values applied before the environment is consulted.
const (
	DefaultMemorySearchLimit    = 10
	DefaultRerankModel          = "rerank-2.5"
	DefaultRerankTopK           = 10
	DefaultOversampleMultiplier = 3
	DefaultRRFK                 = 60
	DefaultBM25Weight           = 1.0
	DefaultVectorWeight         = 1.0
	DefaultIdleReconnect        = 240 * time.Second
	DefaultToolTimeout          = 30 * time.Second
	DefaultOperationTimeout     = 120 * time.Second
	DefaultEmbeddingModel       = "voyage-multimodal-3"
	DefaultEmbeddingDimension   = 1024
	DefaultSemanticBaseURL      = "https://api.mem0.ai"
	DefaultHTTPPort             = "8080"
)

func defaults() *Config {
	return &Config{
		MemoryProvider: MemoryProviderSemantic,
		ModelProvider:  ModelProviderAuto,

		MemorySearchLimit: DefaultMemorySearchLimit,

		Rerank: RerankConfig{
			Enabled:              true,
			Model:                DefaultRerankModel,
			TopK:                 DefaultRerankTopK,
			OversampleMultiplier: DefaultOversampleMultiplier,
		},
		Hybrid: HybridConfig{
			RRFK:         DefaultRRFK,
			BM25Weight:   DefaultBM25Weight,
			VectorWeight: DefaultVectorWeight,
		},

		IdleReconnect:    DefaultIdleReconnect,
		ToolTimeout:      DefaultToolTimeout,
		OperationTimeout: DefaultOperationTimeout,

		EmbeddingModel:     DefaultEmbeddingModel,
		EmbeddingDimension: DefaultEmbeddingDimension,
		SemanticBaseURL:    DefaultSemanticBaseURL,
		HTTPPort:           DefaultHTTPPort,
		ConfigDir:          "./config",
	}
}
