// Package api exposes the bestsellers snapshot over HTTP: public read
// endpoints, the derived overview, and the authenticated refresh write.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bestsellers/config"
	"bestsellers/models"
	"bestsellers/overview"
	"bestsellers/parser"
	"bestsellers/store"
)

// refresh bodies are small category maps; anything near this limit is junk.
const maxRefreshBodyBytes = 4 << 20

// Server holds the API's collaborators.
type Server struct {
	store   store.Store
	cfg     config.ServerConfig
	metrics *Metrics
}

// New builds the API server on top of a snapshot store.
func New(st store.Store, cfg config.ServerConfig) *Server {
	return &Server{
		store:   st,
		cfg:     cfg,
		metrics: NewMetrics(),
	}
}

// MetricsRegistry exposes the server's metric bundle for the binary.
func (s *Server) MetricsRegistry() *Metrics {
	return s.metrics
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.instrument("healthz", s.handleHealth))
	mux.HandleFunc("GET /bestsellers", s.instrument("bestsellers", s.handleGetBestsellers))
	mux.HandleFunc("GET /bestsellers/first", s.instrument("bestsellers_first", s.handleGetFirstCategory))
	mux.HandleFunc("GET /bestsellers/{category}", s.instrument("bestsellers_category", s.handleGetCategory))
	mux.HandleFunc("GET /overview", s.instrument("overview", s.handleGetOverview))
	mux.HandleFunc("POST /refresh", s.instrument("refresh", s.handleRefresh))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	return mux
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", slog.Any("error", err))
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeSnapshotRead maps a repository read result onto the response
// contract: 200 with the value, 204 when the scraper has never produced
// data (an expected steady state, not an error), 500 otherwise.
func writeSnapshotRead(w http.ResponseWriter, snapshot *models.Snapshot, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		w.WriteHeader(http.StatusNoContent)
	case err != nil:
		slog.Error("snapshot read", slog.Any("error", err))
		writeMessage(w, http.StatusInternalServerError, "Internal server error.")
	default:
		writeJSON(w, http.StatusOK, snapshot)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetBestsellers(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.store.GetSnapshot(r.Context())
	writeSnapshotRead(w, snapshot, err)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	// Slugifying the path parameter is idempotent for well-formed slugs
	// and keeps arbitrary input out of the projection expression.
	slug := parser.SlugifyCategory(r.PathValue("category"))
	if slug == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid category.")
		return
	}
	snapshot, err := s.store.GetCategory(r.Context(), slug)
	writeSnapshotRead(w, snapshot, err)
}

func (s *Server) handleGetFirstCategory(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.store.GetFirstCategory(r.Context())
	writeSnapshotRead(w, snapshot, err)
}

func (s *Server) handleGetOverview(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.store.GetSnapshot(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		slog.Error("overview read", slog.Any("error", err))
		writeMessage(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	writeJSON(w, http.StatusOK, overview.Build(*snapshot))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.cfg.APIKey == "" {
		s.metrics.IncRefresh("misconfigured")
		writeMessage(w, http.StatusInternalServerError, "Missing API key.")
		return
	}

	// Header lookup is case-insensitive by header name.
	if key := r.Header.Get("x-api-key"); key == "" || key != s.cfg.APIKey {
		s.metrics.IncRefresh("unauthorized")
		writeMessage(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRefreshBodyBytes))
	if err != nil {
		s.metrics.IncRefresh("rejected")
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if len(body) == 0 {
		s.metrics.IncRefresh("rejected")
		writeMessage(w, http.StatusBadRequest, "Missing request body.")
		return
	}

	categories, order, err := ExtractRefreshPayload(body)
	if err != nil {
		var payloadErr *PayloadError
		if errors.As(err, &payloadErr) {
			s.metrics.IncRefresh("rejected")
			writeMessage(w, http.StatusBadRequest, payloadErr.Reason)
			return
		}
		s.metrics.IncRefresh("rejected")
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	if _, err := s.store.ReplaceSnapshot(r.Context(), categories, order); err != nil {
		slog.Error("replace snapshot", slog.Any("error", err))
		s.metrics.IncRefresh("error")
		writeMessage(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	slog.Info("snapshot refreshed",
		slog.Int("categories", len(categories)),
		slog.Int("category_order", len(order)),
	)
	s.metrics.IncRefresh("ok")
	writeMessage(w, http.StatusOK, "Bestsellers refreshed.")
}
