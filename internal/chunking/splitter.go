// Package chunking splits raw text into overlapping pieces sized for
// embedding, the way a recursive character splitter does: try the largest
// separator first (paragraph breaks), fall back to smaller ones (sentences,
// words, characters) only where a piece is still too big. It feeds the
// retrieval engine's indexing path (internal/embeddings.Indexer), replacing
// the document/section-aware chunker the rest of the RAG pipeline used with
// one that only needs a path and a blob of text.
package chunking

import "strings"

// Config holds the sizing knobs for a splitter.
type Config struct {
	// ChunkSize is the target size of each chunk in characters.
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is the number of characters repeated between consecutive
	// chunks, to keep content from being severed at a boundary.
	ChunkOverlap int `yaml:"chunk_overlap"`

	// MinChunkSize is the smallest chunk kept; a piece shorter than this
	// after trimming is left out of the output, not merged into a neighbor.
	MinChunkSize int `yaml:"min_chunk_size"`

	// PreserveWhitespace keeps leading/trailing whitespace in chunks.
	PreserveWhitespace bool `yaml:"preserve_whitespace"`

	// KeepSeparators includes the separator at the end of the piece that
	// preceded it, instead of dropping it.
	KeepSeparators bool `yaml:"keep_separators"`
}

// DefaultConfig returns the default splitter configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:          1000,
		ChunkOverlap:       200,
		MinChunkSize:       100,
		PreserveWhitespace: false,
		KeepSeparators:     true,
	}
}

// Chunk is a piece of text with its offset into the original input.
type Chunk struct {
	Content     string
	StartOffset int
	EndOffset   int
}

// TokenCounter estimates a token count for text.
type TokenCounter interface {
	Count(text string) int
}

// SimpleTokenCounter estimates tokens as characters divided by an average
// chars-per-token ratio, with no tokenizer dependency.
type SimpleTokenCounter struct {
	CharsPerToken int
}

// Count returns the estimated token count.
func (c *SimpleTokenCounter) Count(text string) int {
	cpt := c.CharsPerToken
	if cpt <= 0 {
		cpt = 4
	}
	return (len(text) + cpt - 1) / cpt
}

// DefaultSeparators is the separator hierarchy tried in order, from largest
// semantic unit to smallest.
var DefaultSeparators = []string{
	"\n\n", // paragraph break
	"\n",   // line break
	". ",   // sentence end
	"? ",
	"! ",
	"; ",
	": ",
	", ",
	" ",
	"", // character, last resort
}

// MarkdownSeparators prioritizes heading boundaries before falling back to
// DefaultSeparators' prose-oriented breaks.
var MarkdownSeparators = []string{
	"\n## ",
	"\n### ",
	"\n#### ",
	"\n\n",
	"\n",
	". ",
	" ",
	"",
}

// RecursiveCharacterTextSplitter splits text by trying separators from
// largest to smallest, merging undersized pieces and re-splitting oversized
// ones, then stitches the result back together with overlap.
type RecursiveCharacterTextSplitter struct {
	config       Config
	separators   []string
	tokenCounter TokenCounter
}

// NewRecursiveCharacterTextSplitter creates a splitter. A non-positive
// ChunkSize or MinChunkSize and a negative ChunkOverlap are taken from
// DefaultConfig; a zero ChunkOverlap is kept and means no overlap.
func NewRecursiveCharacterTextSplitter(cfg Config) *RecursiveCharacterTextSplitter {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = DefaultConfig().ChunkOverlap
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = DefaultConfig().MinChunkSize
	}
	return &RecursiveCharacterTextSplitter{
		config:       cfg,
		separators:   DefaultSeparators,
		tokenCounter: &SimpleTokenCounter{CharsPerToken: 4},
	}
}

// NewMarkdownSplitter creates a splitter using MarkdownSeparators.
func NewMarkdownSplitter(cfg Config) *RecursiveCharacterTextSplitter {
	s := NewRecursiveCharacterTextSplitter(cfg)
	s.separators = MarkdownSeparators
	return s
}

// WithSeparators overrides the separator hierarchy.
func (s *RecursiveCharacterTextSplitter) WithSeparators(seps []string) *RecursiveCharacterTextSplitter {
	s.separators = seps
	return s
}

// WithTokenCounter overrides the token counter.
func (s *RecursiveCharacterTextSplitter) WithTokenCounter(tc TokenCounter) *RecursiveCharacterTextSplitter {
	s.tokenCounter = tc
	return s
}

// Name identifies the splitter strategy.
func (s *RecursiveCharacterTextSplitter) Name() string {
	return "recursive_character"
}

// Split splits text into overlapping chunks. It returns nil for blank input.
func (s *RecursiveCharacterTextSplitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	raw := s.splitText(text, s.separators)
	return s.mergeChunksWithOverlap(raw)
}

func (s *RecursiveCharacterTextSplitter) splitText(text string, separators []string) []Chunk {
	if len(text) == 0 {
		return nil
	}

	separator := ""
	for _, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			break
		}
	}

	var splits []string
	if separator == "" {
		splits = make([]string, 0, len(text))
		for _, r := range text {
			splits = append(splits, string(r))
		}
	} else {
		splits = strings.Split(text, separator)
	}

	var result []Chunk
	var current strings.Builder
	startOffset := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		content := current.String()
		if !s.config.PreserveWhitespace {
			content = strings.TrimSpace(content)
		}
		if len(content) >= s.config.MinChunkSize {
			result = append(result, Chunk{
				Content:     content,
				StartOffset: startOffset,
				EndOffset:   startOffset + len(content),
			})
		}
		startOffset += current.Len()
		current.Reset()
	}

	for i, split := range splits {
		piece := split
		if s.config.KeepSeparators && separator != "" && i < len(splits)-1 {
			piece = split + separator
		}

		if current.Len() > 0 && current.Len()+len(piece) > s.config.ChunkSize {
			flush()
		}

		if len(piece) > s.config.ChunkSize && len(separators) > 1 {
			flush()
			sub := s.splitText(piece, separators[1:])
			for _, c := range sub {
				c.StartOffset += startOffset
				c.EndOffset += startOffset
				result = append(result, c)
			}
			startOffset += len(piece)
		} else {
			current.WriteString(piece)
		}
	}
	flush()

	return result
}

func (s *RecursiveCharacterTextSplitter) mergeChunksWithOverlap(chunks []Chunk) []Chunk {
	if len(chunks) <= 1 || s.config.ChunkOverlap <= 0 {
		return chunks
	}

	result := make([]Chunk, len(chunks))
	for i, chunk := range chunks {
		if i == 0 {
			result[i] = chunk
			continue
		}
		prev := chunks[i-1]
		overlap := s.config.ChunkOverlap
		if overlap > len(prev.Content) {
			overlap = len(prev.Content)
		}
		overlapText := prev.Content[len(prev.Content)-overlap:]
		result[i] = Chunk{
			Content:     overlapText + chunk.Content,
			StartOffset: chunk.StartOffset - overlap,
			EndOffset:   chunk.EndOffset,
		}
	}
	return result
}
