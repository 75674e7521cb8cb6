package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gongdo-labs/deungdae/internal/extract"
	"github.com/gongdo-labs/deungdae/internal/store"
)

// Server exposes the extraction engine and the two record stores over HTTP.
// The reference store holds curated documents with evaluation metadata;
// the client store holds uploaded student documents.
type Server struct {
	engine *extract.Service
	ref    *store.Store
	client *store.Store
	logger *slog.Logger
	http   *http.Server
}

// New creates a server listening on addr.
func New(addr string, engine *extract.Service, ref, client *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine: engine,
		ref:    ref,
		client: client,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed separately so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/{side}", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)
		r.Get("/students", s.handleListStudents)
		r.Get("/students/{id}", s.handleGetStudent)
		r.Delete("/students/{id}", s.handleDeleteStudent)
	})
	return r
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// storeFor maps the {side} URL segment to a record store.
func (s *Server) storeFor(side string) *store.Store {
	switch side {
	case "ref":
		return s.ref
	case "client":
		return s.client
	default:
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
