package compaction

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// recordingClient returns a deterministic summary per call and records the
// PreviousSummary it was handed, so tests can assert strict chaining.
type recordingClient struct {
	calls []CompletionRequest
	err   error
}

func (c *recordingClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	c.calls = append(c.calls, req)
	if c.err != nil {
		return "", c.err
	}
	return fmt.Sprintf("summary-%d", len(c.calls)), nil
}

func TestSummarizeInStagesChainsSequentially(t *testing.T) {
	var messages []*Message
	for i := 0; i < 12; i++ {
		messages = append(messages, msgWithChars(400))
	}
	client := &recordingClient{}

	result, err := SummarizeInStages(context.Background(), SummarizeInStagesInput{
		Messages:       messages,
		Client:         client,
		MaxChunkTokens: 100, // forces multiple segments
		ContextWindow:  10000,
		Instructions:   "summarize",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.calls) < 2 {
		t.Fatalf("expected multiple chained calls, got %d", len(client.calls))
	}
	for i := 1; i < len(client.calls); i++ {
		want := fmt.Sprintf("summary-%d", i)
		if client.calls[i].PreviousSummary != want {
			t.Errorf("call %d: PreviousSummary = %q, want %q (chaining broken)", i, client.calls[i].PreviousSummary, want)
		}
	}
	if result == "" {
		t.Error("expected a non-empty final summary")
	}
}

func TestSummarizeInStagesNilClient(t *testing.T) {
	_, err := SummarizeInStages(context.Background(), SummarizeInStagesInput{Messages: []*Message{msgWithChars(10)}})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestSummarizeInStagesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &recordingClient{}
	_, err := SummarizeInStages(ctx, SummarizeInStagesInput{
		Messages:       []*Message{msgWithChars(10)},
		Client:         client,
		MaxChunkTokens: 100,
		ContextWindow:  1000,
	})
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestSummarizeInStagesModelCallFailed(t *testing.T) {
	client := &recordingClient{err: errors.New("boom")}
	_, err := SummarizeInStages(context.Background(), SummarizeInStagesInput{
		Messages:       []*Message{msgWithChars(10)},
		Client:         client,
		MaxChunkTokens: 100,
		ContextWindow:  1000,
	})
	if !errors.Is(err, ErrModelCallFailed) {
		t.Errorf("expected ErrModelCallFailed, got %v", err)
	}
}

func TestSummarizeInStagesEmptyMessagesReturnsPreviousOrFallback(t *testing.T) {
	client := &recordingClient{}

	got, err := SummarizeInStages(context.Background(), SummarizeInStagesInput{Client: client})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != FallbackSummary {
		t.Errorf("expected fallback summary, got %q", got)
	}

	got, err = SummarizeInStages(context.Background(), SummarizeInStagesInput{
		Client:             client,
		PreviousSummary:    "carried forward",
		HasPreviousSummary: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "carried forward" {
		t.Errorf("expected previous summary carried through, got %q", got)
	}
}

func TestSummarizeInStagesOversizedSingleton(t *testing.T) {
	client := &recordingClient{}
	huge := &Message{Content: TextContent(largeText)}

	_, err := SummarizeInStages(context.Background(), SummarizeInStagesInput{
		Messages:       []*Message{huge},
		Client:         client,
		MaxChunkTokens: 50,
		ContextWindow:  1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected the oversized message to form its own single segment, got %d calls", len(client.calls))
	}
	seg := client.calls[0].Segment
	if len(seg) != 1 {
		t.Fatalf("expected one truncated message in the segment, got %d", len(seg))
	}
	if len(seg[0].Content.ExtractText()) >= len(largeText) {
		t.Error("expected the oversized message to be truncated")
	}
}
