package compaction

import (
	"context"
	"strings"
	"testing"
)

func turn(role Role, text string) *Message {
	return &Message{Role: role, Content: TextContent(text)}
}

func TestHandleBeforeCompactFallsBackWithoutModel(t *testing.T) {
	orch := NewOrchestrator(&recordingClient{}, nil)
	req := CompactionRequest{
		MessagesToSummarize: []*Message{turn(RoleUser, "hello"), turn(RoleAssistant, "hi there")},
	}

	artifact := orch.HandleBeforeCompact(context.Background(), BeforeCompactEvent{Request: req}, BeforeCompactContext{})
	if !strings.Contains(artifact.Summary, FallbackSummary) {
		t.Errorf("expected fallback summary, got %q", artifact.Summary)
	}
}

func TestHandleBeforeCompactProducesStructuredSummary(t *testing.T) {
	client := &recordingClient{}
	orch := NewOrchestrator(client, nil)

	var history []*Message
	for i := 0; i < 6; i++ {
		history = append(history, turn(RoleUser, "tell me about /etc/app/config.yaml"), turn(RoleAssistant, "looking into it"))
	}

	req := CompactionRequest{
		MessagesToSummarize: history,
		FileOps: FileOps{
			Read:    []string{"main.go"},
			Edited:  []string{"handler.go"},
			Written: []string{"handler_test.go"},
		},
	}
	bctx := BeforeCompactContext{
		Model:            "claude-test",
		GetAPIKey:        func(model string) (string, bool) { return "key-123", true },
		SessionManagerID: "session-1",
	}

	artifact := orch.HandleBeforeCompact(context.Background(), BeforeCompactEvent{Request: req}, bctx)

	if artifact.Summary == "" {
		t.Fatal("expected non-empty summary")
	}
	if !strings.Contains(artifact.Summary, "<modified-files>") {
		t.Errorf("expected file-ops section in summary, got %q", artifact.Summary)
	}
	if len(artifact.Details.ModifiedFiles) != 2 {
		t.Errorf("expected 2 modified files, got %v", artifact.Details.ModifiedFiles)
	}
	if len(client.calls) == 0 {
		t.Error("expected the model client to be invoked")
	}
}

func TestHandleBeforeCompactIncludesToolFailureDigest(t *testing.T) {
	client := &recordingClient{}
	orch := NewOrchestrator(client, nil)

	req := CompactionRequest{
		MessagesToSummarize: []*Message{
			turn(RoleUser, "run the build"),
			{Role: RoleToolResult, IsError: true, ToolCallID: "call-1", ToolName: "bash", Content: TextContent("build failed: missing dependency")},
			turn(RoleAssistant, "the build failed, investigating"),
		},
	}
	bctx := BeforeCompactContext{
		Model:     "claude-test",
		GetAPIKey: func(model string) (string, bool) { return "key", true },
	}

	artifact := orch.HandleBeforeCompact(context.Background(), BeforeCompactEvent{Request: req}, bctx)

	if !strings.Contains(artifact.Summary, "## Tool Failures") {
		t.Errorf("expected tool failure digest in summary, got %q", artifact.Summary)
	}
	if !strings.Contains(artifact.Summary, "build failed") {
		t.Errorf("expected failure text preserved, got %q", artifact.Summary)
	}
}

func TestHandleBeforeCompactPreservesRecentTurnsVerbatim(t *testing.T) {
	client := &recordingClient{}
	orch := NewOrchestrator(client, nil)

	var history []*Message
	for i := 0; i < 10; i++ {
		history = append(history, turn(RoleUser, "question"), turn(RoleAssistant, "answer"))
	}
	history = append(history, turn(RoleUser, "final unresolved question about deployment"))

	req := CompactionRequest{MessagesToSummarize: history}
	bctx := BeforeCompactContext{
		Model:     "claude-test",
		GetAPIKey: func(model string) (string, bool) { return "key", true },
	}

	artifact := orch.HandleBeforeCompact(context.Background(), BeforeCompactEvent{Request: req}, bctx)

	if !strings.Contains(artifact.Summary, "Recent turns preserved verbatim") {
		t.Errorf("expected preserved-tail section, got %q", artifact.Summary)
	}
	if !strings.Contains(artifact.Summary, "final unresolved question about deployment") {
		t.Errorf("expected the most recent user turn preserved verbatim, got %q", artifact.Summary)
	}
}

// failThenPassClient fails the quality audit on its first content answer by
// never mentioning any required section, then succeeds once repair
// instructions are sent (detected via the instructions text it receives).
type failThenPassClient struct {
	calls int
}

func (c *failThenPassClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	c.calls++
	if strings.Contains(req.Instructions, "Previous summary failed quality checks") {
		out := ""
		for _, s := range RequiredSummarySections {
			out += s + "\n- ok\n"
		}
		return out, nil
	}
	return "incomplete summary with no required sections", nil
}

func TestHandleBeforeCompactQualityGuardRetriesThenRepairs(t *testing.T) {
	client := &failThenPassClient{}
	orch := NewOrchestrator(client, nil)
	// Preserve no recent turns, so both messages reach the summarizer.
	noTail := 0
	orch.Registry.Set("guard-session", &SafeguardRuntime{RecentTurnsPreserve: &noTail})

	req := CompactionRequest{
		MessagesToSummarize: []*Message{turn(RoleUser, "hi"), turn(RoleAssistant, "hello")},
	}
	bctx := BeforeCompactContext{
		Model:            "claude-test",
		GetAPIKey:        func(model string) (string, bool) { return "key", true },
		SessionManagerID: "guard-session",
	}

	artifact := orch.HandleBeforeCompact(context.Background(), BeforeCompactEvent{Request: req}, bctx)

	for _, section := range RequiredSummarySections {
		if !strings.Contains(artifact.Summary, section) {
			t.Errorf("expected repaired summary to contain %q, got %q", section, artifact.Summary)
		}
	}
	if client.calls < 2 {
		t.Errorf("expected at least 2 model calls (initial + repair), got %d", client.calls)
	}
}
