package recall

import (
	"sort"
	"strings"
)

// synonymMap is the domain-specific query expansion table used by the
// deep recall path. Keys are matched against the lowercased query; values
// are appended as additional search terms.
var synonymMap = map[string][]string{
	"auth":           {"authentication", "authorization"},
	"authentication": {"auth", "login"},
	"db":             {"database"},
	"database":       {"db", "storage"},
	"config":         {"configuration", "settings"},
	"deploy":         {"deployment", "release"},
	"test":           {"testing", "tests"},
	"error":          {"errors", "failure", "exception"},
	"perf":           {"performance", "latency"},
	"memory":         {"recall", "remember"},
	"api":            {"endpoint", "rest"},
	"pattern":        {"approach", "practice"},
}

// ExpandQuery appends domain synonyms for any term present in the query.
// The lowercased form is computed exactly once and reused across all map
// iterations. The original query text always comes first.
func ExpandQuery(query string) string {
	queryLower := strings.ToLower(query)

	var extra []string
	seen := make(map[string]bool)
	for term, synonyms := range synonymMap {
		if !strings.Contains(queryLower, term) {
			continue
		}
		for _, syn := range synonyms {
			if !strings.Contains(queryLower, syn) && !seen[syn] {
				seen[syn] = true
				extra = append(extra, syn)
			}
		}
	}
	if len(extra) == 0 {
		return query
	}
	// Deterministic order regardless of map iteration.
	sort.Strings(extra)
	return query + " " + strings.Join(extra, " ")
}
