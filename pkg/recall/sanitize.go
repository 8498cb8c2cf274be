package recall

import "log/slog"

// Limit bounds: a hard security/correctness constraint applied before any
// oversampling multiplier.
const (
	minLimit = 1
	maxLimit = 100
)

// queryLogMax caps how much of a query string reaches DEBUG logs.
const queryLogMax = 80

// ClampLimit forces limit into [1, 100].
func ClampLimit(limit int) int {
	if limit < minLimit {
		return minLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// logQuery records the query at the policy-mandated levels: full length at
// INFO, truncated text at DEBUG only.
func logQuery(op, query string) {
	slog.Info(op, "query_len", len(query))
	truncated := query
	if len(truncated) > queryLogMax {
		truncated = truncated[:queryLogMax]
	}
	slog.Debug(op, "query", truncated)
}
