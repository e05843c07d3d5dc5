package compaction

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name     string
		msg      *Message
		expected int
	}{
		{"nil message", nil, 0},
		{"empty message", &Message{}, 0},
		{"short content", &Message{Content: TextContent("Hello")}, 2},     // 5 chars / 4 = 1.25 -> 2
		{"exact multiple", &Message{Content: TextContent("12345678")}, 2}, // 8 chars / 4 = 2
		{"with tool metadata", &Message{Role: RoleToolResult, Content: TextContent("Hi"), ToolName: "bash", Details: ToolResultDetails{Status: "error"}}, 3}, // 2 + 4 + 5 = 11 chars -> 3
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.msg); got != tt.expected {
				t.Errorf("EstimateTokens() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestEstimateMessagesTokens(t *testing.T) {
	messages := []*Message{
		{Content: TextContent("Hello")},
		{Content: TextContent("World")},
		{Content: TextContent("12345678")},
	}
	if got := EstimateMessagesTokens(messages); got != 6 {
		t.Errorf("EstimateMessagesTokens() = %d, want 6", got)
	}
	if EstimateMessagesTokens(nil) != 0 {
		t.Error("EstimateMessagesTokens(nil) should return 0")
	}
}

func TestEstimateTokensMonotonic(t *testing.T) {
	shorter := &Message{Content: TextContent("short")}
	longer := &Message{Content: TextContent("a great deal longer than the other message by far")}
	if EstimateTokens(longer) < EstimateTokens(shorter) {
		t.Error("a longer message must never estimate fewer tokens than a shorter one")
	}
}

func TestContentExtractText(t *testing.T) {
	blocks := BlocksContent([]ContentBlock{
		{Type: "text", Text: "first"},
		{Type: "image", Text: ""},
		{Type: "text", Text: "second"},
	})
	if !blocks.IsBlocks() {
		t.Fatal("expected IsBlocks() == true")
	}
	if got, want := blocks.ExtractText(), "first\nsecond"; got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}

	text := TextContent("plain")
	if text.IsBlocks() {
		t.Fatal("expected IsBlocks() == false")
	}
	if got := text.ExtractText(); got != "plain" {
		t.Errorf("ExtractText() = %q, want %q", got, "plain")
	}
}
