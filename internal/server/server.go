// Package server exposes the engine over a minimal HTTP surface:
// POST /generate and GET /health, with optional pre-shared-key auth.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/recallkit/recallkit/internal/config"
	"github.com/recallkit/recallkit/internal/engine"
	"github.com/recallkit/recallkit/internal/observe"
)

// APIKeyHeader carries the pre-shared key when auth is enabled.
const APIKeyHeader = "X-API-Key"

// QueryEngine is the slice of the engine the facade needs.
type QueryEngine interface {
	ProcessQuery(ctx context.Context, queryText string) (*engine.Result, error)
}

// GenerateRequest is the wire format of POST /generate. Parameters and
// Context are accepted for forward compatibility.
type GenerateRequest struct {
	Query      string            `json:"query"`
	Parameters json.RawMessage   `json:"parameters,omitempty"`
	Context    map[string]string `json:"context,omitempty"`
}

// GenerateResponse is the wire format of a successful generation.
type GenerateResponse struct {
	Response  string    `json:"response"`
	QueryID   string    `json:"query_id"`
	Timestamp time.Time `json:"timestamp"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the network facade over one engine. Requests are handled
// concurrently by net/http; nothing here serializes them behind a single
// generation call.
type Server struct {
	engine QueryEngine
	cfg    config.Config
	obs    *observe.Observer
}

func New(eng QueryEngine, cfg config.Config, obs *observe.Observer) *Server {
	return &Server{engine: eng, cfg: cfg, obs: obs}
}

// Handler returns the HTTP handler for the facade.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", s.handleGenerate)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe runs the facade until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.obs.Log().Info().Str("addr", s.cfg.Addr()).Msg("service listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "use POST"})
		return
	}

	// Auth is checked before the request body ever reaches the engine.
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authorization denied"})
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	result, err := s.engine.ProcessQuery(r.Context(), req.Query)
	if err != nil {
		s.obs.Log().Error().Err(err).Msg("query failed")
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrGenerationFailed) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Response:  result.Response,
		QueryID:   result.QueryID,
		Timestamp: result.Timestamp,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "use GET"})
		return
	}
	// Liveness only, no dependency checks.
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

func (s *Server) authorized(r *http.Request) bool {
	if !s.cfg.ServiceKeyRequired {
		return true
	}
	key := r.Header.Get(APIKeyHeader)
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.ServiceKey)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
