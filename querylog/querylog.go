// Package querylog appends one structured JSON record per query attempt
// to an append-only JSONL file, and reads them back for the debug and
// logs endpoints.
package querylog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearpath/clearpath/errs"
)

// Entry is the exact query-log record schema.
type Entry struct {
	RequestID       string    `json:"request_id"`
	Timestamp       string    `json:"timestamp"`
	Query           string    `json:"query"`
	Classification  string    `json:"classification"`
	ModelUsed       string    `json:"model_used"`
	TokensInput     int       `json:"tokens_input"`
	TokensOutput    int       `json:"tokens_output"`
	LatencyMS       float64   `json:"latency_ms"`
	RetrievalCount  int       `json:"retrieval_count"`
	RetrievalScores []float64 `json:"retrieval_scores"`
	EvaluatorFlags  []string  `json:"evaluator_flags"`
	Error           *string   `json:"error"`
}

// Writer is the process-wide log writer. Appends are serialized so that
// no two JSON lines interleave.
type Writer struct {
	path string
	log  zerolog.Logger

	mu sync.Mutex
}

// NewWriter creates a writer for the given JSONL path.
func NewWriter(path string, log zerolog.Logger) *Writer {
	return &Writer{path: path, log: log}
}

// Append writes one entry as a single JSON line. A missing timestamp is
// stamped with the current UTC time; nil slices are normalized to empty
// arrays so the schema stays stable.
func (w *Writer) Append(entry Entry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if entry.RetrievalScores == nil {
		entry.RetrievalScores = []float64{}
	}
	if entry.EvaluatorFlags == nil {
		entry.EvaluatorFlags = []string{}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return errs.Internal("encode log entry", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Internal("create log dir", err)
		}
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errs.Internal("open log file", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return errs.Internal("write log entry", err)
	}
	return nil
}

// All returns every parsable entry in file order (chronological).
// Corrupt lines are skipped silently; a missing file yields no entries.
func (w *Writer) All() ([]Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, errs.Internal("open log file", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			// Corrupt lines never halt enumeration.
			w.log.Debug().Err(err).Msg("skipping malformed log line")
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Internal("read log file", err)
	}
	return entries, nil
}

// Recent returns the last n entries, most recent first.
func (w *Writer) Recent(n int) ([]Entry, error) {
	all, err := w.All()
	if err != nil {
		return nil, err
	}
	if n > len(all) {
		n = len(all)
	}
	tail := all[len(all)-n:]
	out := make([]Entry, 0, n)
	for i := len(tail) - 1; i >= 0; i-- {
		out = append(out, tail[i])
	}
	return out, nil
}

// Page returns the entries slice [offset, offset+limit) in file order
// together with the total entry count.
func (w *Writer) Page(offset, limit int) ([]Entry, int, error) {
	all, err := w.All()
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	if offset >= total {
		return []Entry{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}
