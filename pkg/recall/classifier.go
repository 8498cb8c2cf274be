// Package recall implements the hybrid recall pipeline: complexity-aware
// routing, parallel multi-source gathering, Reciprocal Rank Fusion,
// instruction-steered reranking, content-hash deduplication, and stable
// text formatting.
package recall

import "strings"

// Complexity is the routing class of a query.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// complexWordThreshold is the word count above which a query is routed to
// the deep path regardless of other markers.
const complexWordThreshold = 12

// multiIntentMarkers are connectives and verbs that signal a query is
// asking for more than one thing.
var multiIntentMarkers = []string{
	"compare", "versus", " vs ", "difference between",
	"and also", "as well as", "list ", "show examples",
	"pros and cons", "step by step", "explain why", "gotchas",
}

// Classify maps a query to its routing class using stable heuristics:
// length, conjunctions, quoted phrases, and multi-intent markers. It is
// deterministic and side-effect-free; identical inputs always classify
// identically.
func Classify(query string) Complexity {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ComplexitySimple
	}
	lower := strings.ToLower(trimmed)

	if len(strings.Fields(lower)) > complexWordThreshold {
		return ComplexityComplex
	}

	// A quoted phrase plus surrounding prose usually means "find this
	// exact thing and then do something with it".
	if strings.Count(trimmed, `"`) >= 2 && len(strings.Fields(lower)) > 4 {
		return ComplexityComplex
	}

	for _, marker := range multiIntentMarkers {
		if strings.Contains(lower, marker) {
			return ComplexityComplex
		}
	}

	// Multiple clauses separated by commas or semicolons.
	if strings.Count(lower, ",")+strings.Count(lower, ";") >= 2 {
		return ComplexityComplex
	}

	return ComplexitySimple
}
