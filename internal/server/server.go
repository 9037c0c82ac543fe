// Package server implements the elksvg HTTP render service.
//
// The service accepts laid-out ELK/KLay documents and returns rendered
// artifacts:
//
//	POST /v1/render?format=svg&routing=SPLINES&style=simple,arrows
//	GET  /v1/health
//	GET  /metrics
//
// Documents are JSON unless the request's Content-Type names YAML. Errors are
// returned as JSON objects with a machine-readable code and a message.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/elksvg/internal/config"
	"github.com/matzehuels/elksvg/pkg/pipeline"
)

// shutdownTimeout bounds how long in-flight requests may finish after the
// serve context is cancelled.
const shutdownTimeout = 10 * time.Second

// Server is the HTTP render service.
type Server struct {
	runner   *pipeline.Runner
	defaults pipeline.Options
	cfg      config.ServerConfig
	logger   *log.Logger
	metrics  *Metrics
	router   chi.Router
}

// New creates a server rendering with runner. Request parameters override
// defaults, which typically come from the loaded profile.
func New(runner *pipeline.Runner, defaults pipeline.Options, cfg config.ServerConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	s := &Server{
		runner:   runner,
		defaults: defaults,
		cfg:      cfg,
		logger:   logger,
		metrics:  NewMetrics(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.logRequests)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.With(s.limitBody).Post("/render", s.handleRender)
	})
	r.Handle("/metrics", s.metrics.Handler())
	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Metrics returns the server's Prometheus collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// The server's metrics are installed as the global observability hooks for
// its lifetime.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.metrics.Install()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
