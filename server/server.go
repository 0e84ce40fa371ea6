// Package server exposes the engine over HTTP: query (JSON or SSE),
// ingest (multipart PDF upload), health, debug and logs.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/clearpath/clearpath/config"
	"github.com/clearpath/clearpath/errs"
	"github.com/clearpath/clearpath/rag"
)

// Server wires HTTP handlers to the engine.
type Server struct {
	cfg    *config.Config
	engine *rag.Engine
	router http.Handler
	log    zerolog.Logger
}

// New constructs the HTTP server around an initialised engine.
func New(cfg *config.Config, engine *rag.Engine, log zerolog.Logger) *Server {
	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{cfg: cfg, engine: engine, router: mux, log: log}

	mux.Get("/", s.handleRoot)
	mux.Post("/api/query", s.handleQuery)
	mux.Post("/api/ingest", s.handleIngest)
	mux.Get("/api/health", s.handleHealth)
	mux.Get("/api/debug", s.handleDebug)
	mux.Get("/api/logs", s.handleLogs)

	return s
}

// ServeHTTP exposes the router so Server satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": s.cfg.ProjectName + " API is running",
		"version": s.cfg.Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Health(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps engine error kinds onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the uniform error payload.
func errorBody(err error, requestID string, status int) map[string]any {
	msg := "An internal server error occurred."
	switch status {
	case http.StatusBadRequest:
		msg = err.Error()
	case http.StatusServiceUnavailable:
		msg = "The AI service is temporarily unavailable. Please try again in a few moments."
	}
	body := map[string]any{"error": msg, "status_code": status}
	if requestID != "" {
		body["request_id"] = requestID
	}
	return body
}
