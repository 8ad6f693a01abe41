// Package api exposes the event store over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leighmcculloch/stellar-events-api/internal/archive"
	"github.com/leighmcculloch/stellar-events-api/internal/store"
)

// Backfiller is the on-demand ingestion hook the handlers use when a query
// targets a ledger that is not cached.
type Backfiller interface {
	BackfillIfNeeded(ctx context.Context, sequence uint32) error
}

// Server represents the HTTP API server
type Server struct {
	httpServer  *http.Server
	mux         *http.ServeMux
	store       *store.Store
	backfiller  Backfiller
	storeConfig archive.StoreConfig
}

// NewServer creates a new API server instance
func NewServer(bind string, port int, st *store.Store, backfiller Backfiller, storeConfig archive.StoreConfig) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", bind, port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:         mux,
		store:       st,
		backfiller:  backfiller,
		storeConfig: storeConfig,
	}

	s.registerRoutes()
	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())
	s.mux.HandleFunc("/events", s.handleEvents)
	s.mux.HandleFunc("/events/", s.handleEventRoutes)
}

// handleEvents routes the list endpoint (GET and POST).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListEventsGET(w, r)
	case http.MethodPost:
		s.handleListEventsPOST(w, r)
	default:
		writeError(w, &apiError{
			status:  http.StatusMethodNotAllowed,
			errType: "invalid_request_error",
			code:    "invalid_parameter",
			message: "method not allowed",
		})
	}
}

// handleEventRoutes routes GET /events/{id}.
func (s *Server) handleEventRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, &apiError{
			status:  http.StatusMethodNotAllowed,
			errType: "invalid_request_error",
			code:    "invalid_parameter",
			message: "method not allowed",
		})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/events/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, notFoundError("event not found"))
		return
	}
	s.handleGetEvent(w, r, id)
}

// Start starts the HTTP server in a goroutine
func (s *Server) Start() {
	go func() {
		slog.Info("API server starting",
			"addr", s.httpServer.Addr,
			"endpoints", []string{"/", "/events", "/health", "/metrics"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the route handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}
