package retrieval

import "context"

// SearchFilter scopes a store query to a given embedding model and
// (optionally) a source label.
type SearchFilter struct {
	Model  string
	Source string // "" means unrestricted
}

// ChunkStore is the external collaborator C8's search primitives query.
// Implementations must honor ctx cancellation, returning an error wrapping
// ErrCancelled when tripped, and wrap any underlying storage failure with
// ErrStoreError.
type ChunkStore interface {
	// IndexChunk inserts or replaces a chunk, assigning it an ID if c.ID is
	// blank, and returns the stored chunk.
	IndexChunk(ctx context.Context, c Chunk) (Chunk, error)

	// SearchVector runs C8's dense-vector search: top-`limit` chunks by
	// cosine similarity to queryVec, restricted by filter, with recency
	// applied when cfg.Enabled.
	SearchVector(ctx context.Context, queryVec []float32, limit int, filter SearchFilter, cfg RecencyConfig, nowMillis int64) ([]VectorResult, error)

	// SearchKeyword runs C8's sparse lexical search: top-`limit` chunks
	// ranked by FTS5 bm25(), restricted by filter.
	SearchKeyword(ctx context.Context, query string, limit int, filter SearchFilter) ([]KeywordResult, error)
}
