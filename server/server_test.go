package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearpath/clearpath/config"
	"github.com/clearpath/clearpath/ingest"
	"github.com/clearpath/clearpath/llm/models"
	mockllm "github.com/clearpath/clearpath/mocks/llm"
	"github.com/clearpath/clearpath/querylog"
	"github.com/clearpath/clearpath/rag"
	"github.com/clearpath/clearpath/retriever"
	"github.com/clearpath/clearpath/textsplitter"
	"github.com/clearpath/clearpath/vectorstore"
)

const testDim = 384

type fixedEmbedder struct{ vec []float32 }

func (f *fixedEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}

func (f *fixedEmbedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fixedEmbedder) Dimension() int    { return testDim }
func (f *fixedEmbedder) ModelName() string { return "fixed" }

func newTestServer(t *testing.T, mock *mockllm.MockLLM) *Server {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		ProjectName:         "Clearpath RAG Chatbot",
		Version:             "1.0.0",
		SimpleModel:         "llama-3.1-8b-instant",
		ComplexModel:        "llama-3.3-70b-versatile",
		TopK:                5,
		SimilarityThreshold: 0.35,
		EmbeddingDim:        testDim,
		MaxFileSizeBytes:    50 * 1024 * 1024,
		PDFDir:              filepath.Join(dir, "pdfs"),
		AllowedOrigins:      "http://localhost:5173",
	}

	store := vectorstore.New(dir, testDim, zerolog.Nop())
	require.NoError(t, store.Load())
	vec := make([]float32, testDim)
	vec[0] = 1
	require.NoError(t, store.Add([]vectorstore.ChunkRecord{{
		ChunkID: "c1", Text: "The Pro plan costs $49/month.",
		SourceFile: "pricing_guide.pdf", PageNumber: 2, ChunkIndex: 0, Embedding: vec,
	}}))

	emb := &fixedEmbedder{vec: vec}
	ret := retriever.New(store, emb, cfg.TopK, cfg.SimilarityThreshold)
	splitter := textsplitter.NewRecursiveSplitter(512, 64, textsplitter.WordTokenizer{})
	ing := ingest.NewService(store, emb, splitter, dir, zerolog.Nop())
	logWriter := querylog.NewWriter(filepath.Join(dir, "queries.jsonl"), zerolog.Nop())
	engine := rag.NewEngine(cfg, store, ret, ing, mock, logWriter, zerolog.Nop())

	return New(cfg, engine, zerolog.Nop())
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpoint(t *testing.T) {
	srv := newTestServer(t, &mockllm.MockLLM{
		Content: "It costs $49/month.",
		Usage:   models.Usage{PromptTokens: 10, CompletionTokens: 5},
	})

	rec := postJSON(t, srv, "/api/query", map[string]any{"query": "What is Clearpath?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var result rag.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "It costs $49/month.", result.Answer)
	assert.Equal(t, "simple", result.Debug.Classification)
	require.Len(t, result.Sources, 1)
}

func TestQueryRejectsEmpty(t *testing.T) {
	srv := newTestServer(t, &mockllm.MockLLM{})
	rec := postJSON(t, srv, "/api/query", map[string]any{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRejectsOverlong(t *testing.T) {
	srv := newTestServer(t, &mockllm.MockLLM{})
	rec := postJSON(t, srv, "/api/query", map[string]any{"query": strings.Repeat("x", 2001)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryStreamSSE(t *testing.T) {
	srv := newTestServer(t, &mockllm.MockLLM{
		StreamTokens: []string{"Hel", "lo"},
		Usage:        models.Usage{PromptTokens: 4, CompletionTokens: 2},
	})

	rec := postJSON(t, srv, "/api/query", map[string]any{"query": "What is Clearpath?", "stream": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: token\ndata: {\"token\":\"Hel\"}")
	assert.Contains(t, body, "event: token\ndata: {\"token\":\"lo\"}")
	assert.Contains(t, body, "event: done\n")
	assert.Contains(t, body, `"request_id"`)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &mockllm.MockLLM{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health rag.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 1, health.TotalChunks)
}

func TestIngestRejectsNonPDFPayload(t *testing.T) {
	srv := newTestServer(t, &mockllm.MockLLM{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("definitely not a pdf"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a valid PDF")
}

func TestSanitizeFilename(t *testing.T) {
	name, err := sanitizeFilename("my pricing guide.pdf")
	require.NoError(t, err)
	assert.Equal(t, "my_pricing_guide.pdf", name)

	name, err = sanitizeFilename("../../etc/passwd.pdf")
	require.NoError(t, err)
	assert.Equal(t, "passwd.pdf", name)

	_, err = sanitizeFilename("malware.exe")
	assert.Error(t, err)

	_, err = sanitizeFilename("")
	assert.Error(t, err)
}

func TestDebugAndLogsValidation(t *testing.T) {
	srv := newTestServer(t, &mockllm.MockLLM{Content: "ok"})

	// Generate two log entries.
	for i := 0; i < 2; i++ {
		rec := postJSON(t, srv, "/api/query", map[string]any{"query": "What is Clearpath?"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/debug?n=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/debug?n=500", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?offset=0&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page rag.LogsPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Logs, 1)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
