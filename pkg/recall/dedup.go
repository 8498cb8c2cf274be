package recall

import "github.com/ryanjosebrosas/second-brain/pkg/models"

// Deduplicate suppresses duplicate matches by content hash. The content
// hash is computed once per item. When duplicates occur, the item with
// the highest rerank score wins (falling back to fused score when no
// rerank score is present); the winner keeps the position of the first
// occurrence, so overall order is preserved.
func Deduplicate(matches []models.MemoryMatch) []models.MemoryMatch {
	type slot struct {
		index int
		score float64
	}
	best := make(map[string]slot, len(matches))
	out := make([]models.MemoryMatch, 0, len(matches))

	for _, m := range matches {
		key := models.ContentHash(m.Content)
		score := m.SortScore()

		if prev, ok := best[key]; ok {
			if score > prev.score {
				out[prev.index] = m
				best[key] = slot{index: prev.index, score: score}
			}
			continue
		}
		best[key] = slot{index: len(out), score: score}
		out = append(out, m)
	}
	return out
}
