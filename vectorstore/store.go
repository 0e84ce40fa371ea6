// Package vectorstore holds the flat inner-product index and its
// metadata sidecar.
//
// The index is an ordered sequence of unit-L2 float32 vectors; the i-th
// inserted vector has internal id i, and position i of the sidecar is
// its metadata. The pair is persisted as two sibling files, index.faiss
// (binary vectors) and index.pkl (JSON metadata), written atomically via
// temp-file + rename. Reads vastly outnumber writes, so a single
// readers-writer lock guards the pair: queries take the read side,
// ingestion the write side.
package vectorstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clearpath/clearpath/errs"
)

// File names inside the index directory.
const (
	IndexFileName   = "index.faiss"
	SidecarFileName = "index.pkl"
)

// ChunkRecord is one ingested chunk. The embedding lives only in the
// index and is never serialized into the sidecar.
type ChunkRecord struct {
	ChunkID    string    `json:"chunk_id"`
	Text       string    `json:"text"`
	SourceFile string    `json:"source_file"`
	PageNumber int       `json:"page_number"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float32 `json:"-"`
}

// SearchResult is a chunk metadata projection with its similarity score.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	SourceFile string  `json:"source_file"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// Store is the process-wide vector index plus sidecar.
type Store struct {
	mu        sync.RWMutex
	dir       string
	dimension int
	log       zerolog.Logger

	vectors  [][]float32
	metadata []ChunkRecord
	loaded   bool
}

// New creates an unloaded store rooted at dir. Call Load before use.
func New(dir string, dimension int, log zerolog.Logger) *Store {
	return &Store{dir: dir, dimension: dimension, log: log}
}

func (s *Store) indexPath() string   { return filepath.Join(s.dir, IndexFileName) }
func (s *Store) sidecarPath() string { return filepath.Join(s.dir, SidecarFileName) }

// Load reads the persisted pair, or initialises an empty index when the
// files are absent. A dimension mismatch is fatal. Idempotent.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	_, idxErr := os.Stat(s.indexPath())
	_, sideErr := os.Stat(s.sidecarPath())

	if idxErr == nil && sideErr == nil {
		vectors, dim, err := readIndexFile(s.indexPath())
		if err != nil {
			return err
		}
		if dim != s.dimension {
			return errs.DimensionMismatch(s.dimension, dim)
		}
		metadata, err := readSidecarFile(s.sidecarPath())
		if err != nil {
			return err
		}
		if len(metadata) != len(vectors) {
			return errs.Internal("load index", fmt.Errorf(
				"sidecar has %d records but index has %d vectors", len(metadata), len(vectors)))
		}
		s.vectors = vectors
		s.metadata = metadata
		s.loaded = true
		s.log.Info().Int("chunks", len(vectors)).Int("dimension", dim).Msg("vector index loaded")
		return nil
	}

	if os.IsNotExist(idxErr) || os.IsNotExist(sideErr) {
		s.vectors = nil
		s.metadata = nil
		s.loaded = true
		s.log.Info().Str("dir", s.dir).Int("dimension", s.dimension).
			Msg("no vector index on disk, starting empty")
		return nil
	}

	if idxErr != nil {
		return errs.Internal("stat index", idxErr)
	}
	return errs.Internal("stat sidecar", sideErr)
}

// Add validates and appends records. The i-th appended embedding gets
// internal id len(index)+i, which equals its sidecar position. The call
// is atomic with respect to concurrent readers.
func (s *Store) Add(records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if len(r.Embedding) != s.dimension {
			return errs.DimensionMismatch(s.dimension, len(r.Embedding))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		vec := make([]float32, s.dimension)
		copy(vec, r.Embedding)
		s.vectors = append(s.vectors, vec)

		meta := r
		meta.Embedding = nil
		s.metadata = append(s.metadata, meta)
	}
	s.loaded = true
	s.log.Debug().Int("added", len(records)).Int("total", len(s.vectors)).Msg("chunks added to index")
	return nil
}

// Search returns the k nearest neighbours of query by inner product,
// sorted by score descending. An empty index yields an empty slice.
func (s *Store) Search(query []float32, k int) ([]SearchResult, error) {
	if len(query) != s.dimension {
		return nil, errs.DimensionMismatch(s.dimension, len(query))
	}
	if k <= 0 {
		return []SearchResult{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.vectors) == 0 {
		return []SearchResult{}, nil
	}

	type hit struct {
		id    int
		score float64
	}
	hits := make([]hit, len(s.vectors))
	for i, vec := range s.vectors {
		var dot float64
		for j, x := range vec {
			dot += float64(x) * float64(query[j])
		}
		hits[i] = hit{id: i, score: dot}
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	if k > len(hits) {
		k = len(hits)
	}
	results := make([]SearchResult, 0, k)
	for _, h := range hits[:k] {
		m := s.metadata[h.id]
		results = append(results, SearchResult{
			ChunkID:    m.ChunkID,
			Text:       m.Text,
			SourceFile: m.SourceFile,
			PageNumber: m.PageNumber,
			ChunkIndex: m.ChunkIndex,
			Score:      h.score,
		})
	}
	return results, nil
}

// Persist writes both artifacts. Each file is written to a temp sibling
// and renamed into place, so a failure leaves the previous files intact.
// In-memory state is never rolled back.
func (s *Store) Persist() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errs.Internal("create index dir", err)
	}
	if err := writeIndexFile(s.indexPath(), s.vectors, s.dimension); err != nil {
		return err
	}
	if err := writeSidecarFile(s.sidecarPath(), s.metadata); err != nil {
		return err
	}
	s.log.Info().Int("chunks", len(s.vectors)).Str("dir", s.dir).Msg("vector index persisted")
	return nil
}

// TotalChunks returns the number of vectors in the index.
func (s *Store) TotalChunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Dimension returns the index dimensionality.
func (s *Store) Dimension() int { return s.dimension }

// IsLoaded reports whether Load has completed.
func (s *Store) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
