package retrieval

// MergeHybridResultsInput bundles MergeHybridResults's arguments.
type MergeHybridResultsInput struct {
	Vector           []VectorResult
	Keyword          []KeywordResult
	VectorWeight     float64
	TextWeight       float64
	DynamicThreshold bool
	SnippetMaxChars  int
}

// MergeHybridResults fuses vector and lexical result sets by chunk ID,
// weighted-sums their scores, sorts descending (stable on ties, preserving
// insertion order), and — if requested — applies the query-adaptive
// relevance threshold computed from the top score.
func MergeHybridResults(in MergeHybridResultsInput) []HybridResult {
	snippetMax := in.SnippetMaxChars
	if snippetMax <= 0 {
		snippetMax = DefaultSnippetMaxChars
	}

	order := make([]string, 0, len(in.Vector)+len(in.Keyword))
	byID := make(map[string]*HybridResult, len(in.Vector)+len(in.Keyword))

	for _, v := range in.Vector {
		if _, ok := byID[v.ID]; !ok {
			order = append(order, v.ID)
			byID[v.ID] = &HybridResult{
				ID:          v.ID,
				Path:        v.Path,
				StartLine:   v.StartLine,
				EndLine:     v.EndLine,
				Source:      v.Source,
				Snippet:     truncateSnippet(v.Text, snippetMax),
				VectorScore: v.Score,
			}
		}
	}

	for _, k := range in.Keyword {
		entry, ok := byID[k.ID]
		if !ok {
			entry = &HybridResult{
				ID:        k.ID,
				Path:      k.Path,
				StartLine: k.StartLine,
				EndLine:   k.EndLine,
				Source:    k.Source,
			}
			order = append(order, k.ID)
			byID[k.ID] = entry
		}
		entry.TextScore = k.TextScore
		if snippet := truncateSnippet(k.Text, snippetMax); snippet != "" {
			entry.Snippet = snippet
		}
	}

	merged := make([]HybridResult, 0, len(order))
	for _, id := range order {
		entry := byID[id]
		entry.Score = in.VectorWeight*entry.VectorScore + in.TextWeight*entry.TextScore
		merged = append(merged, *entry)
	}

	stableSortHybridByScoreDesc(merged)

	if in.DynamicThreshold && len(merged) > 0 {
		tau := CalculateDynamicThreshold(merged[0].Score)
		merged = applyThreshold(merged, tau)
	}

	return merged
}

// CalculateDynamicThreshold maps a top score to a relevance cutoff: high
// top scores demand a high absolute bar, low top scores fall back to the
// floor so sparse corpora still return something.
func CalculateDynamicThreshold(top float64) float64 {
	switch {
	case top >= HighCut:
		return top * HighMult
	case top >= MedCut:
		return top * MedMult
	default:
		return Floor
	}
}

// ApplyDynamicThreshold is the identity function when enabled is false;
// otherwise it retains only entries scoring at or above
// CalculateDynamicThreshold(sorted[0].Score).
func ApplyDynamicThreshold(sorted []HybridResult, enabled bool) []HybridResult {
	if !enabled || len(sorted) == 0 {
		return sorted
	}
	tau := CalculateDynamicThreshold(sorted[0].Score)
	return applyThreshold(sorted, tau)
}

func applyThreshold(sorted []HybridResult, tau float64) []HybridResult {
	out := make([]HybridResult, 0, len(sorted))
	for _, r := range sorted {
		if r.Score >= tau {
			out = append(out, r)
		}
	}
	return out
}

func stableSortHybridByScoreDesc(results []HybridResult) {
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && results[j].Score > results[j-1].Score {
			results[j], results[j-1] = results[j-1], results[j]
			j--
		}
	}
}
