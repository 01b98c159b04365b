// Package server provides the HTTP API for duplicate checks.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matsen/paperdup/internal/logger"
	"github.com/matsen/paperdup/internal/metrics"
	"github.com/matsen/paperdup/internal/reference"
	"github.com/matsen/paperdup/internal/semantic"
)

// CorpusLoader returns the full corpus. It is called once per request so the
// server always checks against what is on disk.
type CorpusLoader func(ctx context.Context) ([]reference.Reference, error)

// Server is the HTTP server for the paperdup API.
type Server struct {
	checker *semantic.Checker
	corpus  CorpusLoader
	model   string
	addr    string
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. model is reported
// by the health endpoint.
func NewServer(checker *semantic.Checker, corpus CorpusLoader, model, addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		checker: checker,
		corpus:  corpus,
		model:   model,
		addr:    addr,
		logger:  log,
	}
}

// Handler returns the router with all routes and middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(metrics.Middleware())

	r.Post("/api/v1/check", s.handleCheck)
	r.Get("/api/v1/papers", s.handlePapers)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", s.addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestLogger attaches a request-scoped logger and logs each request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
		ctx := logger.ContextWithLogger(r.Context(), reqLog)

		ww := &metrics.StatusWriter{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(ww, r.WithContext(ctx))

		reqLog.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
