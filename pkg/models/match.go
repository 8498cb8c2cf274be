// Package models defines the shared record types exchanged between the
// memory, storage, recall, and agent layers.
package models

// MatchSource identifies the retrieval source that produced a MemoryMatch.
type MatchSource string

const (
	SourceSemantic MatchSource = "mem0"
	SourceVector   MatchSource = "vector"
	SourceBM25     MatchSource = "bm25"
	SourceGraph    MatchSource = "graph"
)

// MemoryMatch is a single retrieval result with provenance.
//
// Score semantics follow the pipeline stage that produced the match:
//   - Score is provider-native in [0,1] before fusion, RRF-fused afterwards.
//   - RerankScore is set only after the rerank step and, when present, is
//     the primary sort key. The fused Score is preserved for transparency.
type MemoryMatch struct {
	ID          string         `json:"id"`
	Source      MatchSource    `json:"source"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Score       float64        `json:"score"`
	RerankScore *float64       `json:"rerank_score,omitempty"`

	// Sources lists every source that contributed to this match after
	// fusion. Source holds the highest-scoring one.
	Sources []string `json:"sources,omitempty"`
}

// SortScore returns the score used for ordering: the rerank score when
// present, otherwise the (fused or provider-native) score.
func (m *MemoryMatch) SortScore() float64 {
	if m.RerankScore != nil {
		return *m.RerankScore
	}
	return m.Score
}
