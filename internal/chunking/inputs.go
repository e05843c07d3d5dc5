package chunking

import (
	"github.com/haasonsaas/contextcore/internal/embeddings"
)

// ToIndexInputs converts offset-addressed Chunks over the full text of a
// file into line-addressed embeddings.IndexInput values, the shape
// Indexer.IndexAll consumes.
func ToIndexInputs(path, source, text string, chunks []Chunk) []embeddings.IndexInput {
	if len(chunks) == 0 {
		return nil
	}
	lineStarts := lineStartOffsets(text)

	inputs := make([]embeddings.IndexInput, 0, len(chunks))
	for _, c := range chunks {
		start := c.StartOffset
		if start < 0 {
			start = 0
		}
		inputs = append(inputs, embeddings.IndexInput{
			Path:      path,
			StartLine: offsetToLine(lineStarts, start),
			EndLine:   offsetToLine(lineStarts, c.EndOffset),
			Text:      c.Content,
			Source:    source,
		})
	}
	return inputs
}

// lineStartOffsets returns the byte offset at which each line (1-indexed by
// position in the slice, 0-indexed value) begins.
func lineStartOffsets(text string) []int {
	starts := []int{0}
	for i, r := range text {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// offsetToLine returns the 1-based line number containing offset.
func offsetToLine(lineStarts []int, offset int) int {
	line := 1
	for i := 1; i < len(lineStarts); i++ {
		if lineStarts[i] > offset {
			break
		}
		line++
	}
	return line
}
