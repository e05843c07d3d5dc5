// Package embeddings provides the embedding-provider abstraction the hybrid
// retrieval engine (C8) uses to turn chunk text into dense vectors before
// indexing and querying.
package embeddings

import "context"

// Provider embeds text into fixed-dimension dense vectors.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one round trip.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider identifier, used to tag indexed chunks so a
	// later query against a different provider doesn't silently compare
	// incompatible vector spaces. The tag does not include the model, so
	// chunks embedded by two models of one provider carry the same tag.
	Name() string

	// Dimension returns the embedding dimension for the configured model.
	Dimension() int

	// MaxBatchSize returns the maximum number of texts per EmbedBatch call.
	MaxBatchSize() int
}
