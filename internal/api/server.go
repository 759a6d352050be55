// Package api exposes tariff retrieval over HTTP/JSON, mirroring the
// routes of the original serving layer.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tarix-ai/tarix/internal/answer"
	"github.com/tarix-ai/tarix/internal/models"
	"github.com/tarix-ai/tarix/internal/retriever"
	"github.com/tarix-ai/tarix/internal/store"
)

// Server is an HTTP API server for tariff queries.
type Server struct {
	retriever *retriever.Retriever
	answerer  *answer.Answerer
	store     store.Store
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(ret *retriever.Retriever, ans *answer.Answerer, st store.Store, logger *slog.Logger, authToken string) *Server {
	return &Server{
		retriever: ret,
		answerer:  ans,
		store:     st,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered. Every route
// passes through the CORS middleware; the browser frontend is served from
// a different origin.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics — no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /debug/vars", expvar.Handler())

	mux.HandleFunc("GET /api/query", s.auth(s.handleQuery))
	mux.HandleFunc("GET /api/database", s.auth(s.handleDatabase))

	return cors(mux)
}

// --- middleware ---

// cors answers preflight requests and marks responses as cross-origin safe.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleQuery answers GET /api/query?query=... with a synthesized answer
// grounded in the nearest tariff records, plus reference URLs.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	result, err := s.answerer.Answer(r.Context(), query)
	if err != nil {
		if errors.Is(err, retriever.ErrEmptyQuery) {
			s.writeError(w, http.StatusBadRequest, "Query text is required")
			return
		}
		s.logger.Error("failed to answer query", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to answer query")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// databaseResponse is returned by GET /api/database on a hit.
type databaseResponse struct {
	Results []models.ExactMatch `json:"results"`
}

// handleDatabase answers GET /api/database?query=... with substring matches
// on the HTS number. No results is a 404 with a message payload, matching
// the original route's contract.
func (s *Server) handleDatabase(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	matches, err := s.retriever.Lookup(r.Context(), query)
	if err != nil {
		if errors.Is(err, retriever.ErrEmptyQuery) {
			s.writeError(w, http.StatusBadRequest, "Query text is required")
			return
		}
		s.logger.Error("failed to look up hts number", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to look up hts number")
		return
	}

	if len(matches) == 0 {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"message": "No results found"})
		return
	}

	s.writeJSON(w, http.StatusOK, databaseResponse{Results: matches})
}

// --- helpers ---

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
