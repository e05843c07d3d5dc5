package retrieval

import "context"

// SearchInput parameterizes a single hybrid search call: C7's query text is
// turned into an FTS query and C8's embedding of it feeds the dense-vector
// leg, then C9 fuses and thresholds the two result sets.
type SearchInput struct {
	QueryText      string
	QueryEmbedding []float32
	Limit          int
	Filter         SearchFilter
	VectorWeight   float64
	TextWeight     float64
	Recency        RecencyConfig
	NowMillis      int64
	DynamicCut     bool
	SnippetMaxChars int
}

// Search runs C7 (lexical)+C8 (dense vector) against store, then fuses the
// two result sets with C9's hybrid merge and dynamic threshold. It is the
// single entry point callers (the CLI's `search` command, or a future
// agent-context assembler) should use instead of calling the store and
// hybrid package directly.
func Search(ctx context.Context, store ChunkStore, in SearchInput) ([]HybridResult, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	var vectorResults []VectorResult
	if len(in.QueryEmbedding) > 0 {
		vr, err := store.SearchVector(ctx, in.QueryEmbedding, limit, in.Filter, in.Recency, in.NowMillis)
		if err != nil {
			return nil, err
		}
		vectorResults = vr
	}

	var keywordResults []KeywordResult
	if in.QueryText != "" {
		kr, err := store.SearchKeyword(ctx, in.QueryText, limit, in.Filter)
		if err != nil {
			return nil, err
		}
		keywordResults = kr
	}

	snippetMax := in.SnippetMaxChars
	if snippetMax <= 0 {
		snippetMax = DefaultSnippetMaxChars
	}

	merged := MergeHybridResults(MergeHybridResultsInput{
		Vector:          vectorResults,
		Keyword:         keywordResults,
		VectorWeight:    in.VectorWeight,
		TextWeight:      in.TextWeight,
		DynamicThreshold: in.DynamicCut,
		SnippetMaxChars: snippetMax,
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}
