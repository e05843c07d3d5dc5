package retrieval

import "testing"

func TestTruncateSnippet(t *testing.T) {
	if got := truncateSnippet("hello", 10); got != "hello" {
		t.Errorf("short text should be unchanged, got %q", got)
	}
	if got := truncateSnippet("hello world", 5); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	if got := truncateSnippet("x", 0); got != "" {
		t.Errorf("zero budget should yield empty string, got %q", got)
	}
}

func TestTruncateSnippetDoesNotSplitMultiByteRunes(t *testing.T) {
	text := "a😀b😀c" // each emoji is one rune but multiple bytes
	got := truncateSnippet(text, 2)
	if got != "a😀" {
		t.Errorf("got %q, want %q", got, "a😀")
	}
}
