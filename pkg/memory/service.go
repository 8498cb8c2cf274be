// Package memory provides the semantic memory service abstraction: a
// provider-agnostic capability set over an external content-addressable
// store, with metadata filter validation, idle reconnection for long-lived
// clients, and graceful degradation when the provider fails.
package memory

import (
	"context"
	"fmt"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
	"github.com/ryanjosebrosas/second-brain/pkg/services"
)

// SearchOptions are per-call overrides of the configured defaults.
// The zero value means "use config defaults".
type SearchOptions struct {
	// Extended enables provider advanced parameters.
	Extended bool

	// Rerank toggles provider-side reranking, when supported.
	Rerank *bool

	// Categories restricts results to the given metadata categories.
	Categories []string

	// Threshold drops results scoring below it.
	Threshold *float64

	// OverrideUserID replaces the configured owner scope for this call.
	// Used for multi-tenant operations.
	OverrideUserID string
}

// Service is the 13-method capability set every memory provider conforms
// to. Implementations degrade gracefully: provider failures surface as
// empty results (or nil), never as raised provider errors, and are logged
// with stable event names.
type Service interface {
	// Add stores content (plain text or a multimodal block sequence)
	// with its metadata and returns the new memory's id.
	// Fails with InvalidInput if content is empty.
	Add(ctx context.Context, content models.MemoryContent, userID string, metadata map[string]any) (string, error)

	// Search performs semantic similarity search. Results carry
	// provider-native scores in [0,1] and source "mem0" (the graph
	// provider tags its matches "graph").
	Search(ctx context.Context, query, userID string, limit int, opts SearchOptions) ([]models.MemoryMatch, error)

	// SearchWithFilters validates the filter tree before any provider
	// call, then searches with it. Leaves are wrapped into provider
	// AND-semantics; composite trees pass through unchanged.
	SearchWithFilters(ctx context.Context, query, userID string, filter map[string]any, limit int) ([]models.MemoryMatch, error)

	// SearchByCategory is a convenience wrapper over SearchWithFilters.
	SearchByCategory(ctx context.Context, query, userID, category string, limit int) ([]models.MemoryMatch, error)

	// GetAll returns up to limit memories for the owner.
	GetAll(ctx context.Context, userID string, limit int) ([]models.Memory, error)

	// GetByID returns one memory, or nil if absent.
	GetByID(ctx context.Context, id string) (*models.Memory, error)

	// Count returns the number of memories stored for the owner.
	Count(ctx context.Context, userID string) (int, error)

	// Update replaces the content of an existing memory.
	Update(ctx context.Context, id string, content models.MemoryContent) error

	// History returns the change events recorded for one memory, oldest
	// first. Providers without history support return an empty slice.
	History(ctx context.Context, id string) ([]models.MemoryEvent, error)

	// Delete removes one memory by id.
	Delete(ctx context.Context, id string) error

	// DeleteAll removes every memory belonging to the owner.
	DeleteAll(ctx context.Context, userID string) error

	// Ping verifies the provider is reachable.
	Ping(ctx context.Context) error

	// Name identifies the provider for logging and health reporting.
	Name() string
}

// checkScope rejects calls that mix an explicit owner with a different
// override — one call operates in exactly one owner scope.
func checkScope(userID string, opts SearchOptions) error {
	if userID != "" && opts.OverrideUserID != "" && userID != opts.OverrideUserID {
		return fmt.Errorf("%w: conflicting owner scopes %q and %q", services.ErrInvalidInput, userID, opts.OverrideUserID)
	}
	return nil
}

// normalizeFilter validates a raw filter tree and renders it into the
// provider wire form. Bare leaves are wrapped in AND so providers with
// composite-only filter APIs accept them.
func normalizeFilter(raw map[string]any) (map[string]any, error) {
	parsed, err := models.ParseFilter(raw)
	if err != nil {
		return nil, err
	}
	if !parsed.IsComposite() {
		return map[string]any{"AND": []any{parsed.ToProvider()}}, nil
	}
	return parsed.ToProvider(), nil
}
