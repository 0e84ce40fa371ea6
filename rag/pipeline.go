// Package rag orchestrates a query end to end: routing, retrieval,
// prompt assembly, generation, output evaluation and the structured log
// line. It is the single facade the transport layer talks to.
package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/clearpath/clearpath/config"
	"github.com/clearpath/clearpath/errs"
	"github.com/clearpath/clearpath/evaluator"
	"github.com/clearpath/clearpath/ingest"
	"github.com/clearpath/clearpath/llm/iface"
	"github.com/clearpath/clearpath/llm/models"
	"github.com/clearpath/clearpath/prompt"
	"github.com/clearpath/clearpath/querylog"
	"github.com/clearpath/clearpath/retriever"
	"github.com/clearpath/clearpath/router"
	"github.com/clearpath/clearpath/vectorstore"
)

// Response token budgets per routing class.
const (
	simpleMaxTokens  = 512
	complexMaxTokens = 1024
)

// healthPingTimeout bounds the upstream reachability probe.
const healthPingTimeout = 5 * time.Second

// Engine owns the query and ingest pipelines.
type Engine struct {
	cfg       *config.Config
	store     *vectorstore.Store
	retriever *retriever.Retriever
	ingester  *ingest.Service
	llm       iface.LLM
	logWriter *querylog.Writer
	log       zerolog.Logger
	startedAt time.Time
}

// NewEngine wires the pipeline from its already-initialised parts.
func NewEngine(
	cfg *config.Config,
	store *vectorstore.Store,
	ret *retriever.Retriever,
	ingester *ingest.Service,
	client iface.LLM,
	logWriter *querylog.Writer,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		store:     store,
		retriever: ret,
		ingester:  ingester,
		llm:       client,
		logWriter: logWriter,
		log:       log,
		startedAt: time.Now(),
	}
}

// routeQuery picks the model and token budget for a query.
func (e *Engine) routeQuery(query string) (router.Classification, string, int) {
	classification := router.Classify(query)
	if classification == router.Complex {
		return classification, e.cfg.ComplexModel, complexMaxTokens
	}
	return classification, e.cfg.SimpleModel, simpleMaxTokens
}

// Query runs the non-streaming pipeline. Exactly one log line is written
// per attempt, success or failure.
func (e *Engine) Query(ctx context.Context, query, requestID string) (*QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		err := errs.Validation("query cannot be empty or whitespace only")
		e.logAttempt(requestID, query, "", "", nil, nil, 0, 0, 0, err)
		return nil, err
	}

	start := time.Now()
	classification, model, maxTokens := e.routeQuery(query)

	chunks, err := e.retriever.Retrieve(ctx, query)
	if err != nil {
		e.logAttempt(requestID, query, classification, model, nil, nil, 0, 0, elapsedMS(start), err)
		return nil, errs.Internal("retrieve", err)
	}

	messages := prompt.Assemble(query, chunks)
	resp, err := e.llm.Chat(ctx, &models.ChatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		e.logAttempt(requestID, query, classification, model, chunks, nil, 0, 0, elapsedMS(start), err)
		return nil, err
	}

	answer := resp.Content
	tokensIn, tokensOut := usageCounts(resp.Usage)
	flags := evaluator.Evaluate(answer, len(chunks), chunks)
	latency := elapsedMS(start)

	e.logAttempt(requestID, query, classification, model, chunks, flags, tokensIn, tokensOut, latency, nil)

	return &QueryResult{
		RequestID: requestID,
		Answer:    answer,
		Sources:   sources(chunks),
		Debug: Debug{
			Classification: string(classification),
			ModelUsed:      model,
			TokensInput:    tokensIn,
			TokensOutput:   tokensOut,
			LatencyMS:      latency,
			RetrievalCount: len(chunks),
			EvaluatorFlags: flags,
		},
	}, nil
}

// Ingest runs the ingestion pipeline for a local PDF path.
func (e *Engine) Ingest(ctx context.Context, path string) ([]vectorstore.ChunkRecord, error) {
	return e.ingester.IngestPDF(ctx, path)
}

// Ingester exposes the ingestion service for the directory watcher.
func (e *Engine) Ingester() *ingest.Service {
	return e.ingester
}

// Health reports subsystem state. Status degrades when the index is not
// loaded or the upstream does not answer.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	reachable := upstreamReachable(pingCtx, e.llm)
	loaded := e.store.IsLoaded()

	status := "healthy"
	if !loaded || !reachable {
		status = "degraded"
	}
	return HealthStatus{
		Status:            status,
		FAISSIndexLoaded:  loaded,
		TotalChunks:       e.store.TotalChunks(),
		UpstreamReachable: reachable,
		UptimeSeconds:     time.Since(e.startedAt).Seconds(),
	}
}

// TotalChunks reports the current index size.
func (e *Engine) TotalChunks() int {
	return e.store.TotalChunks()
}

// RecentLogs returns the last n log entries, most recent first.
func (e *Engine) RecentLogs(n int) ([]querylog.Entry, error) {
	return e.logWriter.Recent(n)
}

// Logs returns a page of log entries in chronological order.
func (e *Engine) Logs(offset, limit int) (*LogsPage, error) {
	entries, total, err := e.logWriter.Page(offset, limit)
	if err != nil {
		return nil, err
	}
	return &LogsPage{Logs: entries, Total: total, Offset: offset, Limit: limit}, nil
}

// upstreamReachable treats any HTTP answer (including auth failures) as
// reachable; only transport errors and 5xx count as unreachable.
func upstreamReachable(ctx context.Context, client iface.LLM) bool {
	_, err := client.ListModels(ctx)
	if err == nil {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode > 0 && apiErr.HTTPStatusCode < 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode > 0 && reqErr.HTTPStatusCode < 500
	}
	return false
}

func (e *Engine) logAttempt(
	requestID, query string,
	classification router.Classification,
	model string,
	chunks []retriever.RetrievedChunk,
	flags []string,
	tokensIn, tokensOut int,
	latencyMS float64,
	failure error,
) {
	entry := querylog.Entry{
		RequestID:       requestID,
		Query:           query,
		Classification:  string(classification),
		ModelUsed:       model,
		TokensInput:     tokensIn,
		TokensOutput:    tokensOut,
		LatencyMS:       latencyMS,
		RetrievalCount:  len(chunks),
		RetrievalScores: scores(chunks),
		EvaluatorFlags:  flags,
	}
	if failure != nil {
		msg := failure.Error()
		entry.Error = &msg
	}
	if err := e.logWriter.Append(entry); err != nil {
		e.log.Error().Err(err).Str("request_id", requestID).Msg("failed to write query log entry")
	}
}

func sources(chunks []retriever.RetrievedChunk) []Source {
	out := make([]Source, len(chunks))
	for i, c := range chunks {
		out[i] = Source{SourceFile: c.SourceFile, PageNumber: c.PageNumber, Score: c.Score}
	}
	return out
}

func scores(chunks []retriever.RetrievedChunk) []float64 {
	out := make([]float64, len(chunks))
	for i, c := range chunks {
		out[i] = c.Score
	}
	return out
}

func usageCounts(u *models.Usage) (int, int) {
	if u == nil {
		return 0, 0
	}
	return u.PromptTokens, u.CompletionTokens
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
