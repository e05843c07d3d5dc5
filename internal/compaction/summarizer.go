package compaction

import (
	"context"
	"fmt"
	"strings"
)

// SummarizeInStagesInput bundles the staged summarizer's arguments.
type SummarizeInStagesInput struct {
	Messages           []*Message
	Client             ModelClient
	Model              string
	APIKey             string
	ReserveTokens      int
	MaxChunkTokens     int
	ContextWindow      int
	Instructions       string
	PreviousSummary    string
	HasPreviousSummary bool
}

// SummarizeInStages recursively summarizes a long history in chunks bounded
// by MaxChunkTokens, producing a single consolidated summary.
//
// Segments are summarized strictly in order: segment i+1's prompt embeds
// segment i's returned summary as PreviousSummary. Parallel segment
// summarization is forbidden by design — the chained-summary protocol
// requires each stage to observe the prior stage's output, so this loop is
// never parallelized even though the segments are independently sized.
//
// ctx cancellation is checked before every model call; on trip, the call
// fails wrapping ErrCancelled. The returned summary is always non-empty on
// success.
func SummarizeInStages(ctx context.Context, in SummarizeInStagesInput) (string, error) {
	if in.Client == nil {
		return "", fmt.Errorf("compaction: nil model client: %w", ErrModelUnavailable)
	}

	maxChunkTokens := in.MaxChunkTokens
	if maxChunkTokens <= 0 {
		maxChunkTokens = 1
	}

	segments := partitionIntoSegments(in.Messages, maxChunkTokens, in.ContextWindow)

	previous := in.PreviousSummary
	havePrevious := in.HasPreviousSummary

	if len(segments) == 0 {
		if havePrevious {
			return previous, nil
		}
		return FallbackSummary, nil
	}

	var current string
	for _, segment := range segments {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("compaction: summarization cancelled: %w", ErrCancelled)
		default:
		}

		req := CompletionRequest{
			Model:             in.Model,
			APIKey:            in.APIKey,
			Instructions:      in.Instructions,
			Segment:           segment,
			ReserveTokens:     in.ReserveTokens,
			MaxResponseTokens: in.ReserveTokens,
		}
		if havePrevious {
			req.PreviousSummary = previous
		}

		out, err := in.Client.Complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("compaction: summarization cancelled: %w", ErrCancelled)
			}
			return "", fmt.Errorf("compaction: model call failed: %w: %w", ErrModelCallFailed, err)
		}

		current = out
		previous = out
		havePrevious = true
	}

	if strings.TrimSpace(current) == "" {
		return FallbackSummary, nil
	}
	return current, nil
}

// partitionIntoSegments splits messages into contiguous segments, closing a
// segment before a message that would push it past maxChunkTokens; a single
// message larger than maxChunkTokens still forms a segment of its own. A
// message that IsOversizedForSummary reports as too large for contextWindow
// is not skipped: its text is truncated to maxChunkTokens*CharsPerToken
// characters with a marker and it becomes its own segment, so its content
// is still represented in the summary rather than silently dropped.
func partitionIntoSegments(messages []*Message, maxChunkTokens, contextWindow int) [][]*Message {
	if len(messages) == 0 {
		return nil
	}

	var segments [][]*Message
	var current []*Message
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			segments = append(segments, current)
			current = nil
			currentTokens = 0
		}
	}

	for _, msg := range messages {
		m := msg
		if IsOversizedForSummary(m, contextWindow) {
			flush()
			segments = append(segments, []*Message{truncateOversized(m, maxChunkTokens)})
			continue
		}

		tokens := EstimateTokens(m)
		if currentTokens > 0 && currentTokens+tokens > maxChunkTokens {
			flush()
		}
		current = append(current, m)
		currentTokens += tokens
	}
	flush()

	return segments
}

// truncateOversized returns a copy of msg whose extracted text is truncated
// to fit maxChunkTokens*CharsPerToken characters, with a marker noting the
// truncation, so the staged summarizer always has something to send rather
// than silently dropping the message.
func truncateOversized(msg *Message, maxChunkTokens int) *Message {
	budget := maxChunkTokens * CharsPerToken
	if budget <= 0 {
		budget = CharsPerToken
	}
	text := msg.Content.ExtractText()
	if len(text) > budget {
		text = text[:budget] + "...[truncated oversized message]"
	}
	clone := *msg
	clone.Content = TextContent(text)
	return &clone
}
