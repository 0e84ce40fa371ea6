package retriever

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearpath/clearpath/vectorstore"
)

const testDim = 384

// scriptedEmbedder returns a fixed vector per query text.
type scriptedEmbedder struct {
	vectors map[string][]float32
}

func (s *scriptedEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	return s.vectors[text], nil
}

func (s *scriptedEmbedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vectors[t]
	}
	return out, nil
}

func (s *scriptedEmbedder) Dimension() int    { return testDim }
func (s *scriptedEmbedder) ModelName() string { return "scripted" }

func unit(i int) []float32 {
	v := make([]float32, testDim)
	v[i] = 1
	return v
}

func newStore(t *testing.T, records ...vectorstore.ChunkRecord) *vectorstore.Store {
	t.Helper()
	store := vectorstore.New(t.TempDir(), testDim, zerolog.Nop())
	require.NoError(t, store.Load())
	require.NoError(t, store.Add(records))
	return store
}

func TestFilenameBoostReordersResults(t *testing.T) {
	store := newStore(t,
		vectorstore.ChunkRecord{
			ChunkID: "pricing", Text: "The Pro plan costs $49/month.",
			SourceFile: "pricing_guide.pdf", PageNumber: 2, ChunkIndex: 0, Embedding: unit(0),
		},
		vectorstore.ChunkRecord{
			ChunkID: "faq", Text: "You can reset your password from settings.",
			SourceFile: "faq.pdf", PageNumber: 1, ChunkIndex: 0, Embedding: unit(1),
		},
	)

	// Inner products against the scripted query vector: pricing 0.40,
	// faq 0.42 — faq wins before the boost.
	query := "what is the pricing?"
	qvec := make([]float32, testDim)
	qvec[0] = 0.40
	qvec[1] = 0.42
	emb := &scriptedEmbedder{vectors: map[string][]float32{query: qvec}}

	r := New(store, emb, 5, 0.35)
	chunks, err := r.Retrieve(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "pricing_guide.pdf", chunks[0].SourceFile)
	assert.InDelta(t, 0.45, chunks[0].Score, 1e-6, "0.40 plus the 0.05 filename boost")
	assert.Equal(t, "faq.pdf", chunks[1].SourceFile)
	assert.InDelta(t, 0.42, chunks[1].Score, 1e-6)
}

func TestThresholdFiltersBeforeBoost(t *testing.T) {
	store := newStore(t,
		vectorstore.ChunkRecord{
			ChunkID: "weak", Text: "irrelevant text",
			SourceFile: "pricing_guide.pdf", PageNumber: 1, ChunkIndex: 0, Embedding: unit(0),
		},
	)

	// Raw score 0.33 is below the 0.35 threshold; the boost must not be
	// able to rescue it.
	query := "pricing question"
	qvec := make([]float32, testDim)
	qvec[0] = 0.33
	emb := &scriptedEmbedder{vectors: map[string][]float32{query: qvec}}

	r := New(store, emb, 5, 0.35)
	chunks, err := r.Retrieve(context.Background(), query)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveEmptyStore(t *testing.T) {
	store := newStore(t)
	emb := &scriptedEmbedder{vectors: map[string][]float32{"q": unit(0)}}
	chunks, err := New(store, emb, 5, 0.35).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestFilenameKeywords(t *testing.T) {
	assert.Equal(t, []string{"pricing", "guide"}, filenameKeywords("pricing_guide.pdf"))
	assert.Equal(t, []string{"onboarding", "2024"}, filenameKeywords("Onboarding-2024.PDF"))
	// Tokens shorter than 3 characters are dropped.
	assert.Empty(t, filenameKeywords("a_b.pdf"))
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 0.0, jaccard("", ""))
	assert.Equal(t, 1.0, jaccard("abc", "cab"))
	assert.Greater(t, jaccard("pricing details here", "pricing details there"), 0.80)
	assert.Less(t, jaccard("abc", "xyz"), 0.01)
}

func TestDeduplicateKeepsHigherScore(t *testing.T) {
	low := RetrievedChunk{Text: "the pro plan includes support", SourceFile: "a.pdf", PageNumber: 1, Score: 0.5}
	high := RetrievedChunk{Text: "the pro plan includes support!", SourceFile: "b.pdf", PageNumber: 2, Score: 0.7}
	other := RetrievedChunk{Text: "zzz 0123456789 qqq", SourceFile: "c.pdf", PageNumber: 3, Score: 0.4}

	// Candidate order: low first, then the higher-scored duplicate.
	out := deduplicate([]RetrievedChunk{low, other, high})
	require.Len(t, out, 2)

	// The duplicate replaced the accepted chunk's fields in place.
	assert.Equal(t, "b.pdf", out[0].SourceFile)
	assert.Equal(t, 0.7, out[0].Score)
	assert.Equal(t, 2, out[0].PageNumber)

	// No remaining pair is a near-duplicate.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			assert.LessOrEqual(t, jaccard(out[i].Text, out[j].Text), 0.80)
		}
	}
}

func TestDeduplicateDropsLowerScoredDuplicate(t *testing.T) {
	a := RetrievedChunk{Text: "shared characters here", Score: 0.9}
	b := RetrievedChunk{Text: "shared characters here.", Score: 0.6}
	out := deduplicate([]RetrievedChunk{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, 0.9, out[0].Score)
}
