// Package retrieval implements the hybrid memory retrieval engine: dense
// vector search, sparse lexical (BM25) search over the same chunk corpus, a
// recency penalty, and a weighted-sum merge with a query-adaptive relevance
// threshold. It follows patterns from clawdbot's internal/memory and
// internal/rag packages.
package retrieval

// Chunk is a retrieval corpus record: a small indexed passage of text with
// stable identity, an embedding, and provenance.
type Chunk struct {
	ID        string
	Path      string
	StartLine int
	EndLine   int
	Source    string
	Text      string
	Embedding []float32

	// UpdatedAtMillis is a wall-clock millisecond timestamp, or nil when
	// unknown (recency penalty treats nil as "no penalty").
	UpdatedAtMillis *int64

	// Model tags the source of Embedding; embeddings.Indexer sets it to the
	// provider's Name(), which does not name the model.
	Model string
}

// VectorResult is a Chunk scored by cosine similarity against a query
// embedding.
type VectorResult struct {
	Chunk
	Score float64
}

// KeywordResult is a Chunk scored by the FTS5 BM25 rank, normalized to a
// bounded score.
type KeywordResult struct {
	Chunk
	TextScore float64
}

// HybridResult is the scored projection over Chunk that callers consume: it
// keeps ID for merge identity, carries a truncated Snippet in place of Text,
// and omits Embedding and UpdatedAtMillis.
type HybridResult struct {
	ID        string
	Path      string
	StartLine int
	EndLine   int
	Source    string
	Snippet   string

	VectorScore float64
	TextScore   float64
	Score       float64
}

// RecencyConfig governs the optional recency penalty applied during vector
// search.
type RecencyConfig struct {
	Enabled    bool
	Lambda     float64 // in [0, 1], default 0.08
	WindowDays int     // in [1, 365], default 14
}

// Dynamic-threshold tier constants (C9).
const (
	HighCut  = 0.7
	MedCut   = 0.3
	HighMult = 0.5
	MedMult  = 0.6
	Floor    = 0.15
)

// DefaultSnippetMaxChars bounds HybridResult.Snippet when callers don't
// specify their own budget.
const DefaultSnippetMaxChars = 320
