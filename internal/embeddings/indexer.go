package embeddings

import (
	"context"
	"fmt"

	"github.com/haasonsaas/contextcore/internal/retrieval"
)

// Indexer embeds chunk text through a Provider and writes the resulting
// vectors into a retrieval.ChunkStore, batching according to the
// provider's MaxBatchSize.
type Indexer struct {
	Provider Provider
	Store    retrieval.ChunkStore
}

// IndexInput is one unit of text to embed and persist.
type IndexInput struct {
	Path      string
	StartLine int
	EndLine   int
	Text      string
	Source    string
}

// IndexAll embeds and stores every input, batching calls to the provider.
// It returns the indexed chunks in input order; a batch failure aborts the
// remaining inputs and returns the error alongside whatever was stored so
// far.
func (ix *Indexer) IndexAll(ctx context.Context, inputs []IndexInput) ([]retrieval.Chunk, error) {
	if ix.Provider == nil || ix.Store == nil {
		return nil, fmt.Errorf("embeddings: indexer requires both a Provider and a Store")
	}

	batchSize := ix.Provider.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(inputs)
	}

	var indexed []retrieval.Chunk
	for start := 0; start < len(inputs); start += batchSize {
		end := start + batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch := inputs[start:end]

		texts := make([]string, len(batch))
		for i, in := range batch {
			texts[i] = in.Text
		}

		vectors, err := ix.Provider.EmbedBatch(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("embeddings: embed batch %d-%d: %w", start, end, err)
		}

		for i, in := range batch {
			chunk, err := ix.Store.IndexChunk(ctx, retrieval.Chunk{
				Path:      in.Path,
				StartLine: in.StartLine,
				EndLine:   in.EndLine,
				Text:      in.Text,
				Embedding: vectors[i],
				Source:    in.Source,
				Model:     ix.Provider.Name(),
			})
			if err != nil {
				return indexed, fmt.Errorf("embeddings: index chunk %s:%d: %w", in.Path, in.StartLine, err)
			}
			indexed = append(indexed, chunk)
		}
	}
	return indexed, nil
}
