package retrieval

import "unicode/utf8"

// truncateSnippet truncates text to at most maxChars runes without
// splitting a multi-byte rune — the Go-native equivalent of the spec's
// "UTF-16-safe truncator, must not split surrogate pairs" requirement (Go
// strings are UTF-8, so the hazard is splitting a rune's byte sequence
// rather than a UTF-16 surrogate pair; the invariant — never cut in the
// middle of one logical character — is the same).
func truncateSnippet(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	count := 0
	for i := range text {
		if count == maxChars {
			return text[:i]
		}
		count++
	}
	return text
}
