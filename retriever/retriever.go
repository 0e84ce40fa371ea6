// Package retriever fetches the context chunks for a query: nearest
// neighbour search, threshold filtering, a filename-keyword re-rank and
// near-duplicate removal.
package retriever

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/clearpath/clearpath/embed"
	"github.com/clearpath/clearpath/vectorstore"
)

// Defaults mirror the product configuration.
const (
	DefaultTopK      = 5
	DefaultThreshold = 0.35

	// filenameBoost is added once per chunk whose source filename shares
	// a keyword with the query.
	filenameBoost = 0.05

	// jaccardCutoff is the character-set similarity above which two
	// chunks count as duplicates.
	jaccardCutoff = 0.80
)

// RetrievedChunk is one retrieval hit.
type RetrievedChunk struct {
	Text       string  `json:"text"`
	SourceFile string  `json:"source_file"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// Retriever embeds queries and searches the shared vector store.
type Retriever struct {
	store     *vectorstore.Store
	embedder  embed.Embedder
	topK      int
	threshold float64
}

// New builds a retriever. Non-positive k and threshold fall back to the
// defaults.
func New(store *vectorstore.Store, embedder embed.Embedder, topK int, threshold float64) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Retriever{store: store, embedder: embedder, topK: topK, threshold: threshold}
}

// Retrieve returns up to topK chunks for query, threshold-filtered,
// boost-re-ranked and deduplicated, ordered by score descending.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]RetrievedChunk, error) {
	vec, err := r.embedder.Encode(ctx, query)
	if err != nil {
		return nil, err
	}

	raw, err := r.store.Search(vec, r.topK)
	if err != nil {
		return nil, err
	}

	retrieved := make([]RetrievedChunk, 0, len(raw))
	for _, res := range raw {
		if res.Score < r.threshold {
			continue
		}
		retrieved = append(retrieved, RetrievedChunk{
			Text:       res.Text,
			SourceFile: res.SourceFile,
			PageNumber: res.PageNumber,
			Score:      res.Score,
		})
	}

	retrieved = applyFilenameBoost(retrieved, strings.ToLower(query))
	return deduplicate(retrieved), nil
}

var filenameTokenRe = regexp.MustCompile(`[_\-.\s]+`)
var pdfExtRe = regexp.MustCompile(`(?i)\.pdf$`)

// filenameKeywords derives re-rank keywords from a source filename:
// strip the .pdf extension, split on separators, keep tokens of length
// >= 3, lowercased.
func filenameKeywords(sourceFile string) []string {
	stem := pdfExtRe.ReplaceAllString(sourceFile, "")
	tokens := filenameTokenRe.Split(stem, -1)
	keywords := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if len(t) >= 3 {
			keywords = append(keywords, strings.ToLower(t))
		}
	}
	return keywords
}

// applyFilenameBoost adds filenameBoost to each chunk whose filename
// shares a keyword with the lowered query (at most once per chunk),
// then re-sorts by score descending.
func applyFilenameBoost(chunks []RetrievedChunk, queryLower string) []RetrievedChunk {
	for i := range chunks {
		for _, kw := range filenameKeywords(chunks[i].SourceFile) {
			if strings.Contains(queryLower, kw) {
				chunks[i].Score += filenameBoost
				break
			}
		}
	}
	sort.SliceStable(chunks, func(a, b int) bool { return chunks[a].Score > chunks[b].Score })
	return chunks
}

// jaccard computes character-set Jaccard similarity. Two empty sets
// have similarity 0.
func jaccard(a, b string) float64 {
	setA := make(map[rune]struct{})
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{})
	for _, r := range b {
		setB[r] = struct{}{}
	}

	union := len(setA)
	intersection := 0
	for r := range setB {
		if _, ok := setA[r]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// deduplicate walks candidates in order, dropping any whose text is a
// near-duplicate (Jaccard > 0.80) of an already-accepted chunk. A
// higher-scored duplicate replaces the accepted chunk's fields instead.
func deduplicate(chunks []RetrievedChunk) []RetrievedChunk {
	if len(chunks) == 0 {
		return []RetrievedChunk{}
	}

	accepted := make([]RetrievedChunk, 0, len(chunks))
	for _, candidate := range chunks {
		duplicate := false
		for i := range accepted {
			if jaccard(candidate.Text, accepted[i].Text) > jaccardCutoff {
				if candidate.Score > accepted[i].Score {
					accepted[i] = candidate
				}
				duplicate = true
				break
			}
		}
		if !duplicate {
			accepted = append(accepted, candidate)
		}
	}
	return accepted
}
