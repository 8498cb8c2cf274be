package recall

import (
	"context"
	"log/slog"
	"time"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// SearchFunc is one retrieval source's query function. Using a concrete
// function type (rather than an opaque awaitable) means a non-searchable
// value cannot be passed to the gather by mistake.
type SearchFunc func(ctx context.Context) ([]models.MemoryMatch, error)

// Source pairs a name with its search function for the parallel gather.
type Source struct {
	Name   string
	Search SearchFunc
}

// Gather launches every source concurrently and assembles a mapping
// source name → matches. Each source gets an independent timeout; a
// failure or timeout in one source yields an empty slice for that source
// and is logged — it never aborts the whole call. Cancelling ctx cancels
// all outstanding sources cooperatively.
func Gather(ctx context.Context, sources []Source, perSourceTimeout time.Duration) map[string][]models.MemoryMatch {
	type sourceResult struct {
		name    string
		matches []models.MemoryMatch
	}

	resultCh := make(chan sourceResult, len(sources))
	for _, src := range sources {
		go func(src Source) {
			srcCtx := ctx
			if perSourceTimeout > 0 {
				var cancel context.CancelFunc
				srcCtx, cancel = context.WithTimeout(ctx, perSourceTimeout)
				defer cancel()
			}

			matches, err := src.Search(srcCtx)
			if err != nil {
				slog.Warn("recall.source.failed", "source", src.Name, "error", err)
				matches = nil
			}
			resultCh <- sourceResult{name: src.Name, matches: matches}
		}(src)
	}

	results := make(map[string][]models.MemoryMatch, len(sources))
	for range sources {
		r := <-resultCh
		if r.matches == nil {
			r.matches = []models.MemoryMatch{}
		}
		results[r.name] = r.matches
	}
	return results
}
