// Package textsplitter provides token measurement and the recursive
// token-bounded chunker used by PDF ingestion.
package textsplitter

import "strings"

// Default chunking parameters.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 64
)

// DefaultSeparators is the separator hierarchy tried in order: paragraph
// break, line break, sentence boundary, word boundary.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

// RecursiveSplitter splits text into chunks of about ChunkSize tokens,
// seeding each flushed chunk's successor with the last ChunkOverlap
// tokens of the flushed text. The seeded buffer is not re-measured, so a
// chunk can exceed ChunkSize by up to ChunkOverlap tokens; the
// word-halving fallback does not re-measure its two halves either.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
	Tokenizer    Tokenizer
}

// NewRecursiveSplitter creates a splitter. A non-positive chunk size or a
// negative overlap falls back to the defaults; a nil tokenizer defaults
// to the subword tokenizer.
func NewRecursiveSplitter(chunkSize, chunkOverlap int, tok Tokenizer) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if tok == nil {
		tok = NewSubwordTokenizer()
	}
	return &RecursiveSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
		Tokenizer:    tok,
	}
}

// SplitText splits text into chunks. The whole text is returned as a
// single chunk when it already fits.
func (s *RecursiveSplitter) SplitText(text string) []string {
	return s.split(text, s.Separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	if s.Tokenizer.CountTokens(text) <= s.ChunkSize {
		return []string{text}
	}

	if len(separators) == 0 {
		// Pathological fallback: nothing left to split on, halve by words.
		words := strings.Fields(text)
		mid := len(words) / 2
		if mid < 1 {
			mid = 1
		}
		return []string{
			strings.Join(words[:mid], " "),
			strings.Join(words[mid:], " "),
		}
	}

	sep := separators[0]
	rest := separators[1:]
	if !strings.Contains(text, sep) {
		return s.split(text, rest)
	}

	segments := strings.Split(text, sep)
	var chunks []string
	current := ""

	for _, segment := range segments {
		candidate := segment
		if current != "" {
			candidate = current + sep + segment
		}

		if s.Tokenizer.CountTokens(candidate) > s.ChunkSize {
			if current != "" {
				chunks = append(chunks, current)
				if s.Tokenizer.CountTokens(segment) > s.ChunkSize {
					// The segment alone still exceeds the chunk size: split
					// it with the remaining separators and keep its final
					// sub-chunk as the new buffer.
					sub := s.split(segment, rest)
					if len(sub) > 0 {
						chunks = append(chunks, sub[:len(sub)-1]...)
						current = sub[len(sub)-1]
					} else {
						current = ""
					}
					continue
				}
				// Seed the next buffer with the tail of the flushed chunk.
				overlap := s.Tokenizer.LastNTokens(current, s.ChunkOverlap)
				if overlap != "" {
					current = overlap + sep + segment
				} else {
					current = segment
				}
			} else {
				// A single segment exceeds the chunk size on its own:
				// recurse with the remaining separators. The recursion's
				// final sub-chunk becomes the new buffer so its tail stays
				// available for overlap.
				sub := s.split(segment, rest)
				if len(sub) > 0 {
					chunks = append(chunks, sub[:len(sub)-1]...)
					current = sub[len(sub)-1]
				} else {
					current = ""
				}
			}
		} else {
			current = candidate
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}
