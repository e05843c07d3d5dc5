package retrieval

import (
	"math"
	"regexp"
	"strings"
)

var ftsTokenRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// BuildFtsQuery tokenizes a raw query into FTS5 MATCH syntax: each
// alphanumeric/underscore run is double-quoted (any embedded quote
// stripped) and the terms are ANDed together. Returns ("", false) when the
// raw query has no tokenizable content.
func BuildFtsQuery(raw string) (string, bool) {
	terms := ftsTokenRe.FindAllString(raw, -1)
	if len(terms) == 0 {
		return "", false
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + strings.ReplaceAll(term, `"`, "") + `"`
	}
	return strings.Join(quoted, " AND "), true
}

// Bm25RankToScore converts a raw FTS5 bm25() rank (lower is better, and can
// be negative) into a bounded (0, 1] score. Non-finite ranks are treated as
// the rank 999, per spec.
func Bm25RankToScore(rank float64) float64 {
	if math.IsNaN(rank) || math.IsInf(rank, 0) {
		rank = 999
	}
	if rank < 0 {
		rank = 0
	}
	return 1 / (1 + rank)
}
