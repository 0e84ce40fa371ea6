package textsplitter

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer measures text in subword tokens.
type Tokenizer interface {
	// CountTokens returns the number of tokens in text.
	CountTokens(text string) int
	// LastNTokens returns the trailing n tokens of text decoded back to a
	// string. Used to build the overlap region between adjacent chunks.
	LastNTokens(text string, n int) string
}

// wordsPerToken is the word approximation used when no subword encoding
// is available: tokens ~ words / 0.75.
const wordsPerToken = 0.75

// SubwordTokenizer counts tokens with a real subword encoding and falls
// back to the word approximation when the encoding cannot be initialised
// (the BPE vocabulary is fetched at runtime and may be unreachable). The
// fallback decision is made once and cached for the process lifetime.
type SubwordTokenizer struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

var _ Tokenizer = (*SubwordTokenizer)(nil)

// NewSubwordTokenizer returns a lazy tokenizer. The encoding is loaded on
// first use so construction never fails.
func NewSubwordTokenizer() *SubwordTokenizer {
	return &SubwordTokenizer{}
}

func (t *SubwordTokenizer) load() *tiktoken.Tiktoken {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// Word fallback from here on. Never surfaces as an error.
			t.encoding = nil
			return
		}
		t.encoding = enc
	})
	return t.encoding
}

func (t *SubwordTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if enc := t.load(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return approxTokenCount(text)
}

func (t *SubwordTokenizer) LastNTokens(text string, n int) string {
	if text == "" || n <= 0 {
		return ""
	}
	if enc := t.load(); enc != nil {
		ids := enc.Encode(text, nil, nil)
		if len(ids) > n {
			ids = ids[len(ids)-n:]
		}
		return enc.Decode(ids)
	}
	return approxLastNTokens(text, n)
}

// WordTokenizer is the word-count approximation used when no subword
// vocabulary is available. Exported so the splitter can be exercised
// deterministically in tests.
type WordTokenizer struct{}

var _ Tokenizer = (*WordTokenizer)(nil)

func (WordTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return approxTokenCount(text)
}

func (WordTokenizer) LastNTokens(text string, n int) string {
	if text == "" || n <= 0 {
		return ""
	}
	return approxLastNTokens(text, n)
}

func approxTokenCount(text string) int {
	return int(float64(len(strings.Fields(text))) / wordsPerToken)
}

func approxLastNTokens(text string, n int) string {
	words := strings.Fields(text)
	take := int(float64(n) * wordsPerToken)
	if take < 1 {
		take = 1
	}
	if take > len(words) {
		take = len(words)
	}
	return strings.Join(words[len(words)-take:], " ")
}
