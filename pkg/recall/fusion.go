package recall

import (
	"sort"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// FuseRRF merges per-source ranked lists via Reciprocal Rank Fusion:
// for each item, fused_score = Σ_sources 1/(k + rank_in_source), with
// rank starting at 1. Items are keyed by content hash so the same logical
// memory surfacing from two sources fuses into one entry carrying the
// highest-scoring source tag and the full contributing-source set.
//
// The output order is deterministic given identical inputs: sources are
// visited in sorted name order and ties break on item ID.
func FuseRRF(bySource map[string][]models.MemoryMatch, k int) []models.MemoryMatch {
	if k <= 0 {
		k = 60
	}

	names := make([]string, 0, len(bySource))
	for name := range bySource {
		names = append(names, name)
	}
	sort.Strings(names)

	type accumulator struct {
		match      models.MemoryMatch
		fused      float64
		bestScore  float64
		bestSource models.MatchSource
		sources    []string
	}

	acc := make(map[string]*accumulator)
	var order []string

	for _, name := range names {
		for rank, m := range bySource[name] {
			contribution := 1.0 / float64(k+rank+1)
			key := models.ContentHash(m.Content)

			a, ok := acc[key]
			if !ok {
				a = &accumulator{
					match:      m,
					bestScore:  m.Score,
					bestSource: m.Source,
				}
				acc[key] = a
				order = append(order, key)
			}
			a.fused += contribution
			a.sources = append(a.sources, name)
			if m.Score > a.bestScore {
				a.bestScore = m.Score
				a.bestSource = m.Source
				a.match.ID = m.ID
				a.match.Metadata = m.Metadata
			}
		}
	}

	fused := make([]models.MemoryMatch, 0, len(acc))
	for _, key := range order {
		a := acc[key]
		m := a.match
		m.Score = a.fused
		m.Source = a.bestSource
		m.Sources = dedupeStrings(a.sources)
		fused = append(fused, m)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})
	return fused
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
