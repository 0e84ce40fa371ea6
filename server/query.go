package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/clearpath/clearpath/prompt"
	"github.com/clearpath/clearpath/rag"
)

// maxQueryChars is the request-level query length cap.
const maxQueryChars = 2000

type queryRequest struct {
	Query  string `json:"query"`
	Stream bool   `json:"stream"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "invalid request body", "status_code": http.StatusBadRequest, "request_id": requestID,
		})
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Query cannot be empty or whitespace only.", "status_code": http.StatusBadRequest, "request_id": requestID,
		})
		return
	}
	if len(req.Query) > maxQueryChars {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": fmt.Sprintf("Query exceeds %d characters.", maxQueryChars), "status_code": http.StatusBadRequest, "request_id": requestID,
		})
		return
	}

	// Input sanitization happens at the transport edge so the pipeline
	// and the query log see the same cleaned text.
	query := prompt.SanitizeInput(req.Query)

	if req.Stream {
		s.streamQuery(w, r, query, requestID)
		return
	}

	result, err := s.engine.Query(r.Context(), query, requestID)
	if err != nil {
		status := statusFor(err)
		s.log.Error().Err(err).Str("request_id", requestID).Msg("query failed")
		writeJSON(w, status, errorBody(err, requestID, status))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// streamQuery relays pipeline events as server-sent events.
func (s *Server) streamQuery(w http.ResponseWriter, r *http.Request, query, requestID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody(nil, requestID, http.StatusInternalServerError))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range s.engine.QueryStream(r.Context(), query, requestID) {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			s.log.Error().Err(err).Str("request_id", requestID).Msg("failed to encode stream event")
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
		flusher.Flush()

		if ev.Name == rag.EventDone || ev.Name == rag.EventError {
			return
		}
	}
}
