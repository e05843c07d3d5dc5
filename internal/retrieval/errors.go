package retrieval

import "errors"

// Sentinel error kinds for the retrieval path. Retrieval declares its own
// ErrCancelled rather than importing internal/compaction, so the two
// engines stay independently importable.
var (
	// ErrCancelled marks cooperative cancellation of an in-flight store
	// query.
	ErrCancelled = errors.New("retrieval: cancelled")

	// ErrStoreError marks a failure raised by the chunk/FTS store.
	// Retrieval treats it as fatal to the whole query — unlike compaction,
	// there is no fallback result to fall back to.
	ErrStoreError = errors.New("retrieval: store error")
)
