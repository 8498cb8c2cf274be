// Package embedding wraps the external multimodal embedder and reranker
// behind two narrow interfaces. Both adapters retry transient failures,
// fall back to a secondary provider when one is configured, and preserve
// provider-native score ranges on the results.
package embedding

import (
	"context"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// Modality identifies the kind of content being embedded.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityPDF   Modality = "pdf"
	ModalityVideo Modality = "video"
)

// Embedder produces vectors in a shared 1024-dim text/image/pdf/video
// space.
type Embedder interface {
	// Embed embeds a single piece of content. For non-text modalities,
	// content is a blob reference or URL.
	Embed(ctx context.Context, content string, modality Modality) ([]float32, error)

	// EmbedMultimodal produces a single vector for a block composition.
	EmbedMultimodal(ctx context.Context, blocks []models.ContentBlock) ([]float32, error)

	// Dimension returns the vector dimensionality.
	Dimension() int
}

// Candidate is one rerank input. IDs are opaque to the reranker and come
// back unchanged.
type Candidate struct {
	ID      string
	Content string
}

// RankedCandidate is one rerank output in the provider's new order.
type RankedCandidate struct {
	ID    string
	Score float64
}

// Reranker reorders candidates by relevance to a query. The instruction
// steers ranking ("prefer recent patterns"); empty and unset are
// equivalent — the field is omitted from the provider request.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, topK int, instruction string) ([]RankedCandidate, error)
}
