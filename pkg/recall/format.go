package recall

import (
	"fmt"
	"strings"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// sourceLabels maps source tags to display headers.
var sourceLabels = map[models.MatchSource]string{
	models.SourceSemantic: "Semantic Memory",
	models.SourceVector:   "Vector Store",
	models.SourceBM25:     "Full-Text Search",
	models.SourceGraph:    "Graph Memory",
}

// Format renders matches into the stable textual structure returned to
// text-only consumers: a header per source group with score annotations.
// Agent callers receive the raw []MemoryMatch instead.
func Format(matches []models.MemoryMatch) string {
	if len(matches) == 0 {
		return "No relevant memories found."
	}

	var b strings.Builder
	var current models.MatchSource
	for _, m := range matches {
		if m.Source != current {
			current = m.Source
			label, ok := sourceLabels[current]
			if !ok {
				label = string(current)
			}
			fmt.Fprintf(&b, "## %s\n", label)
		}
		if m.RerankScore != nil {
			fmt.Fprintf(&b, "- [rerank %.2f | fused %.3f] %s\n", *m.RerankScore, m.Score, m.Content)
		} else {
			fmt.Fprintf(&b, "- [score %.3f] %s\n", m.Score, m.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
