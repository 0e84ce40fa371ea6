// Package ingest turns PDF documents into embedded chunks in the vector
// store.
//
// Pipeline: extract page-attributed text, build the page map, strip the
// markers, recursively split into 512-token chunks with 64-token
// overlap, attribute a page to each chunk, embed in batches of 32, then
// add + persist. Ingestion is serialized: a process-local mutex plus a
// file lock on the index directory enforce the single-writer rule.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clearpath/clearpath/embed"
	"github.com/clearpath/clearpath/errs"
	"github.com/clearpath/clearpath/textsplitter"
	"github.com/clearpath/clearpath/vectorstore"
)

// markerRe matches the [PAGE_BREAK:N] markers inserted between pages.
var markerRe = regexp.MustCompile(`\[PAGE_BREAK:(\d+)\]`)

// lockFileName is the cross-process ingest lock inside the index dir.
const lockFileName = ".ingest.lock"

// pageMarker is one (char offset, page number) entry of the page map.
type pageMarker struct {
	offset int
	page   int
}

// chunkMeta is a split chunk before embedding.
type chunkMeta struct {
	text string
	page int
}

// Service runs the ingestion pipeline against the shared store.
type Service struct {
	store    *vectorstore.Store
	embedder embed.Embedder
	splitter *textsplitter.RecursiveSplitter
	lock     *flock.Flock
	log      zerolog.Logger

	mu sync.Mutex
}

// NewService wires the pipeline. indexDir hosts the cross-process lock
// file next to the index artifacts.
func NewService(store *vectorstore.Store, embedder embed.Embedder, splitter *textsplitter.RecursiveSplitter, indexDir string, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		lock:     flock.New(filepath.Join(indexDir, lockFileName)),
		log:      log,
	}
}

// IngestPDF runs the full pipeline for one PDF and returns the records
// added to the store. At most one ingestion runs at a time.
func (s *Service) IngestPDF(ctx context.Context, path string) ([]vectorstore.ChunkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The lock file lives in the index dir, which does not exist before
	// the first persist.
	if err := os.MkdirAll(filepath.Dir(s.lock.Path()), 0o755); err != nil {
		return nil, errs.Internal("create index dir", err)
	}
	if err := s.lock.Lock(); err != nil {
		return nil, errs.Internal("acquire ingest lock", err)
	}
	defer s.lock.Unlock()

	filename := filepath.Base(path)
	s.log.Info().Str("file", filename).Msg("starting ingestion")

	fullText, totalPages, err := extractTextFromPDF(path)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("file", filename).Int("pages", totalPages).Msg("extracted text")

	return s.ingestAnnotated(ctx, fullText, filename)
}

// ingestAnnotated runs the pipeline from marker-annotated text onwards.
func (s *Service) ingestAnnotated(ctx context.Context, fullText, filename string) ([]vectorstore.ChunkRecord, error) {
	chunks := s.chunkText(fullText)
	if len(chunks) == 0 {
		return nil, errs.Validation("%q produced no chunks after splitting", filename)
	}
	s.log.Info().Str("file", filename).Int("chunks", len(chunks)).Msg("split into chunks")

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.text
	}
	embeddings, err := s.embedder.EncodeBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	records := make([]vectorstore.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.ChunkRecord{
			ChunkID:    uuid.NewString(),
			Text:       c.text,
			SourceFile: filename,
			PageNumber: c.page,
			ChunkIndex: i,
			Embedding:  embeddings[i],
		}
	}

	if err := s.store.Add(records); err != nil {
		return nil, err
	}
	if err := s.store.Persist(); err != nil {
		return nil, err
	}

	s.log.Info().Str("file", filename).Int("chunks", len(records)).Msg("ingestion complete")
	return records, nil
}

// chunkText splits marker-annotated text into page-attributed chunks.
func (s *Service) chunkText(fullText string) []chunkMeta {
	pageMap := buildPageMap(fullText)
	clean := markerRe.ReplaceAllString(fullText, "")

	raw := s.splitter.SplitText(clean)

	var result []chunkMeta
	searchStart := 0
	for _, chunk := range raw {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		// Locate the chunk at or after the advancing cursor; overlap can
		// defeat the cursor, so fall back to a global search.
		idx := strings.Index(clean[searchStart:], chunk)
		if idx >= 0 {
			idx += searchStart
		} else {
			idx = strings.Index(clean, chunk)
		}

		page := 1
		if idx >= 0 {
			// Markers were stripped, so remap the clean offset onto the
			// annotated text proportionally. This is an approximation:
			// chunks whose boundaries fall near a page break may be
			// attributed to the neighbouring page.
			denom := len(clean)
			if denom < 1 {
				denom = 1
			}
			approxFullOffset := int(float64(idx) / float64(denom) * float64(len(fullText)))
			page = lookupPage(approxFullOffset, pageMap)
			searchStart = idx + len(chunk)
		}

		result = append(result, chunkMeta{text: strings.TrimSpace(chunk), page: page})
	}
	return result
}

// buildPageMap collects (marker offset, page number) pairs in offset
// order.
func buildPageMap(fullText string) []pageMarker {
	matches := markerRe.FindAllStringSubmatchIndex(fullText, -1)
	markers := make([]pageMarker, 0, len(matches))
	for _, m := range matches {
		page, err := strconv.Atoi(fullText[m[2]:m[3]])
		if err != nil {
			continue
		}
		markers = append(markers, pageMarker{offset: m[0], page: page})
	}
	sort.Slice(markers, func(a, b int) bool { return markers[a].offset < markers[b].offset })
	return markers
}

// lookupPage returns the page of the last marker at or before offset,
// defaulting to page 1.
func lookupPage(offset int, markers []pageMarker) int {
	page := 1
	for _, m := range markers {
		if m.offset <= offset {
			page = m.page
		} else {
			break
		}
	}
	return page
}
