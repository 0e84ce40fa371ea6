package rag

import "github.com/clearpath/clearpath/querylog"

// Source is one citation in a query response.
type Source struct {
	SourceFile string  `json:"source_file"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// Debug carries the per-query diagnostics returned alongside the answer.
type Debug struct {
	Classification string   `json:"classification"`
	ModelUsed      string   `json:"model_used"`
	TokensInput    int      `json:"tokens_input"`
	TokensOutput   int      `json:"tokens_output"`
	LatencyMS      float64  `json:"latency_ms"`
	RetrievalCount int      `json:"retrieval_count"`
	EvaluatorFlags []string `json:"evaluator_flags"`
}

// QueryResult is the non-streaming query response.
type QueryResult struct {
	RequestID string   `json:"request_id"`
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	Debug     Debug    `json:"debug"`
}

// Event names emitted by the streaming pipeline.
const (
	EventToken = "token"
	EventDone  = "done"
	EventError = "error"
)

// Event is one streaming pipeline emission.
type Event struct {
	Name string
	Data any
}

// TokenData is the payload of a token event.
type TokenData struct {
	Token string `json:"token"`
}

// DoneData is the payload of the terminal done event.
type DoneData struct {
	RequestID string   `json:"request_id"`
	Sources   []Source `json:"sources"`
	Debug     Debug    `json:"debug"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Error      string `json:"error"`
	RequestID  string `json:"request_id"`
	StatusCode int    `json:"status_code"`
}

// HealthStatus is the health() operation response.
type HealthStatus struct {
	Status            string  `json:"status"`
	FAISSIndexLoaded  bool    `json:"faiss_index_loaded"`
	TotalChunks       int     `json:"total_chunks"`
	UpstreamReachable bool    `json:"upstream_reachable"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// LogsPage is the logs(offset, limit) operation response.
type LogsPage struct {
	Logs   []querylog.Entry `json:"logs"`
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}
