package compaction

import "errors"

// Sentinel error kinds per the compaction engine's error-handling design.
// Wrap these with fmt.Errorf("...: %w", ErrX) and unwrap with errors.Is.
var (
	// ErrCancelled marks cooperative cancellation of an in-flight model or
	// I/O call.
	ErrCancelled = errors.New("compaction: cancelled")

	// ErrModelUnavailable marks that no model was configured, or the
	// model registry returned no API key.
	ErrModelUnavailable = errors.New("compaction: model unavailable")

	// ErrModelCallFailed marks an error raised by the model client.
	ErrModelCallFailed = errors.New("compaction: model call failed")

	// ErrDroppedSummarizationFailed marks a failure while summarizing the
	// dropped-history block produced by the history pruner.
	ErrDroppedSummarizationFailed = errors.New("compaction: dropped-history summarization failed")

	// ErrWorkspaceRulesUnavailable marks a failure reading workspace rules;
	// always silently absorbed into an empty rules section.
	ErrWorkspaceRulesUnavailable = errors.New("compaction: workspace rules unavailable")
)
