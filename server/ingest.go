package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/clearpath/clearpath/errs"
)

// Accepted upload content types. Some browsers send octet-stream for
// PDFs; the magic-byte check below is the real gate.
var allowedMIMETypes = map[string]struct{}{
	"application/pdf":          {},
	"binary/octet-stream":      {},
	"application/octet-stream": {},
}

var safeFilenameRe = regexp.MustCompile(`^[\w\-]+\.(?i:pdf)$`)
var unsafeCharRe = regexp.MustCompile(`[^\w\-.]`)

var pdfMagic = []byte("%PDF")

// sanitizeFilename reduces an uploaded filename to word characters,
// hyphens and underscores with a .pdf extension.
func sanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", errs.Validation("no filename provided")
	}
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	base = unsafeCharRe.ReplaceAllString(base, "")
	if !strings.HasSuffix(strings.ToLower(base), ".pdf") {
		return "", errs.Validation("file %q does not have a .pdf extension", filename)
	}
	if !safeFilenameRe.MatchString(base) {
		return "", errs.Validation("filename %q contains disallowed characters", base)
	}
	return base, nil
}

type ingestResponse struct {
	Filename    string `json:"filename"`
	ChunksAdded int    `json:"chunks_added"`
	TotalChunks int    `json:"total_chunks"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSizeBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "missing or oversized file upload", "status_code": http.StatusBadRequest,
		})
		return
	}
	defer file.Close()

	filename, err := sanitizeFilename(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err, "", http.StatusBadRequest))
		return
	}

	if ct := header.Header.Get("Content-Type"); ct != "" {
		if _, ok := allowedMIMETypes[ct]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": "unsupported content type " + ct, "status_code": http.StatusBadRequest,
			})
			return
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "failed to read upload (too large?)", "status_code": http.StatusBadRequest,
		})
		return
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "file is not a valid PDF", "status_code": http.StatusBadRequest,
		})
		return
	}

	if err := os.MkdirAll(s.cfg.PDFDir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err, "", http.StatusInternalServerError))
		return
	}
	path := filepath.Join(s.cfg.PDFDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err, "", http.StatusInternalServerError))
		return
	}

	records, err := s.engine.Ingest(r.Context(), path)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errs.ErrValidation) {
			status = http.StatusBadRequest
		}
		s.log.Error().Err(err).Str("file", filename).Msg("ingest failed")
		writeJSON(w, status, errorBody(err, "", status))
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Filename:    filename,
		ChunksAdded: len(records),
		TotalChunks: s.engine.TotalChunks(),
	})
}
