// Package deps constructs and holds the shared dependency container.
// CreateDeps builds the memory service, storage service, embedder,
// reranker, and agent registry — in that order — and returns an immutable
// Deps value. There is no process-global state; everything threads
// through this container.
package deps

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ryanjosebrosas/second-brain/pkg/agent"
	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/embedding"
	"github.com/ryanjosebrosas/second-brain/pkg/llm"
	"github.com/ryanjosebrosas/second-brain/pkg/memory"
	"github.com/ryanjosebrosas/second-brain/pkg/recall"
	"github.com/ryanjosebrosas/second-brain/pkg/storage"
)

// Deps is the immutable dependency container. Agents and recall helpers
// receive it explicitly; nothing mutates it after CreateDeps returns.
type Deps struct {
	Config   *config.Config
	Memory   memory.Service
	Graph    memory.Service // nil unless the graph provider is enabled
	Storage  *storage.Service
	DB       *storage.Client
	Embedder embedding.Embedder
	Reranker embedding.Reranker
	Recall   *recall.Pipeline
	LLM      llm.Client
	Registry *agent.Registry
}

// CreateDeps wires the whole system from configuration. Construction
// order is fixed: memory service, storage service, embedder, reranker,
// then the agent registry.
func CreateDeps(ctx context.Context, cfg *config.Config) (*Deps, error) {
	d := &Deps{Config: cfg}

	// 1. Memory service.
	switch cfg.MemoryProvider {
	case config.MemoryProviderSemantic:
		d.Memory = memory.NewSemantic(memory.SemanticConfig{
			BaseURL:       cfg.SemanticBaseURL,
			APIKey:        cfg.SemanticAPIKey,
			DefaultUserID: cfg.UserID,
			SearchLimit:   cfg.MemorySearchLimit,
			Rerank:        cfg.Rerank.Enabled,
			IdleReconnect: cfg.IdleReconnect,
		})
	case config.MemoryProviderGraph:
		graph := memory.NewGraph(memory.GraphConfig{
			BaseURL:       cfg.GraphBaseURL,
			APIKey:        cfg.SemanticAPIKey,
			DefaultUserID: cfg.UserID,
			SearchLimit:   cfg.MemorySearchLimit,
			IdleReconnect: cfg.IdleReconnect,
		})
		d.Memory = graph
		d.Graph = graph
	case config.MemoryProviderNone:
		d.Memory = memory.NewStub()
	}

	// 2. Storage service (client + migrations first).
	db, err := storage.NewClient(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}
	d.DB = db
	d.Storage = storage.NewService(db, cfg.Hybrid)
	if err := d.Storage.LoadContentTypes(ctx, cfg.UserID); err != nil {
		slog.Warn("content_types.load.failed", "error", err)
	}
	if err := d.Storage.SeedContentTypesFromFile(cfg.ConfigDir); err != nil {
		slog.Warn("content_types.seed.failed", "error", err)
	}

	// 3. Embedder, 4. Reranker.
	voyage := embedding.NewVoyage(embedding.VoyageConfig{
		APIKey:      cfg.VoyageAPIKey,
		Model:       cfg.EmbeddingModel,
		RerankModel: cfg.Rerank.Model,
		Dimension:   cfg.EmbeddingDimension,
	})
	d.Embedder = voyage
	d.Reranker = voyage

	d.Recall = recall.New(d.Memory, d.Storage, d.Graph, d.Embedder, d.Reranker, recall.Options{
		UserID:      cfg.UserID,
		SearchLimit: cfg.MemorySearchLimit,
		Rerank:      cfg.Rerank,
		Hybrid:      cfg.Hybrid,
	})

	// 5. LLM client and the agent registry, frozen inside BuildRegistry.
	client, err := llm.BuildClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm init failed: %w", err)
	}
	d.LLM = client

	registry, err := agent.BuildRegistry(agent.Services{
		Memory:   d.Memory,
		Storage:  d.Storage,
		Recall:   d.Recall,
		Embedder: d.Embedder,
		LLM:      d.LLM,
		Config:   cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("agent registry init failed: %w", err)
	}
	d.Registry = registry

	slog.Info("deps.created",
		"memory_provider", cfg.MemoryProvider,
		"model_provider", d.LLM.Provider(),
		"agents", len(registry.Names()))
	return d, nil
}

// Close releases held resources.
func (d *Deps) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
