package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearpath/clearpath/errs"
	"github.com/clearpath/clearpath/textsplitter"
	"github.com/clearpath/clearpath/vectorstore"
)

const testDim = 384

// fakeEmbedder produces deterministic unit vectors without any network.
type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, testDim)
		v[(len(texts[i]))%testDim] = 1
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return testDim }
func (f *fakeEmbedder) ModelName() string { return "fake-minilm" }

func newTestService(t *testing.T) (*Service, *vectorstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store := vectorstore.New(dir, testDim, zerolog.Nop())
	require.NoError(t, store.Load())
	splitter := textsplitter.NewRecursiveSplitter(512, 64, textsplitter.WordTokenizer{})
	svc := NewService(store, &fakeEmbedder{}, splitter, dir, zerolog.Nop())
	return svc, store
}

func TestSanitizePageText(t *testing.T) {
	in := "Plan\x00 overview\t\ttable\n\n\n\n\nnext\x07 line"
	out := sanitizePageText(in)
	assert.Equal(t, "Plan overview table\n\nnext line", out)
}

func TestBuildPageMapAndLookup(t *testing.T) {
	text := "page one text\n[PAGE_BREAK:1]\npage two text\n[PAGE_BREAK:2]\n"
	markers := buildPageMap(text)
	require.Len(t, markers, 2)
	assert.Equal(t, 1, markers[0].page)
	assert.Equal(t, 2, markers[1].page)
	assert.Less(t, markers[0].offset, markers[1].offset)

	assert.Equal(t, 1, lookupPage(0, markers), "before any marker defaults to page 1")
	assert.Equal(t, 1, lookupPage(markers[0].offset, markers))
	assert.Equal(t, 2, lookupPage(len(text), markers))
}

func TestChunkTextStripsMarkersAndAttributesPages(t *testing.T) {
	svc, _ := newTestService(t)

	text := "alpha beta gamma\n[PAGE_BREAK:1]\ndelta epsilon zeta\n[PAGE_BREAK:2]\n"
	chunks := svc.chunkText(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotContains(t, c.text, "PAGE_BREAK")
		assert.GreaterOrEqual(t, c.page, 1)
	}
}

func TestIngestAnnotatedBuildsContiguousRecords(t *testing.T) {
	svc, store := newTestService(t)

	var b strings.Builder
	for page := 1; page <= 3; page++ {
		for i := 0; i < 300; i++ {
			fmt.Fprintf(&b, "word%d-%d ", page, i)
		}
		fmt.Fprintf(&b, "\n[PAGE_BREAK:%d]\n", page)
	}

	records, err := svc.ingestAnnotated(context.Background(), b.String(), "pricing_guide.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, records)

	for i, r := range records {
		assert.Equal(t, i, r.ChunkIndex, "chunk_index must be contiguous from 0")
		assert.Len(t, r.Embedding, testDim)
		assert.GreaterOrEqual(t, r.PageNumber, 1)
		assert.Equal(t, "pricing_guide.pdf", r.SourceFile)
		assert.NotEmpty(t, r.ChunkID)
		assert.NotEmpty(t, r.Text)
	}

	// Records were added to the shared store.
	assert.Equal(t, len(records), store.TotalChunks())
}

func TestIngestAnnotatedRejectsEmptyText(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ingestAnnotated(context.Background(), "\n[PAGE_BREAK:1]\n", "empty.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestIngestPDFFailsOnUnreadableFile(t *testing.T) {
	svc, _ := newTestService(t)
	path := filepath.Join(t.TempDir(), "not-a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0o644))

	_, err := svc.IngestPDF(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInternal))
}

func TestIngestVisibilityAfterCompletion(t *testing.T) {
	svc, store := newTestService(t)

	text := strings.Repeat("support answer content ", 50) + "\n[PAGE_BREAK:1]\n"
	records, err := svc.ingestAnnotated(context.Background(), text, "faq.pdf")
	require.NoError(t, err)

	// A query starting after ingest returns must see the new chunks.
	results, err := store.Search(records[0].Embedding, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, records[0].ChunkID, results[0].ChunkID)
}
