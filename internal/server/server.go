// Package server provides the HTTP API for mindcast.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/mindcast/internal/classifier"
	"github.com/hyperjump/mindcast/internal/config"
	"github.com/hyperjump/mindcast/internal/observability/metrics"
	"github.com/hyperjump/mindcast/internal/storage"
	"github.com/hyperjump/mindcast/pkg/utils"
	"go.uber.org/zap"
)

// Server is the HTTP server for the classification API.
type Server struct {
	service *classifier.Service
	storage storage.Storage
	config  *config.Config
	metrics *metrics.Metrics
	logger  *zap.Logger
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts /metrics and instruments every route.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithStorage enables run persistence and the /api/v1/runs routes.
func WithStorage(st storage.Storage) Option {
	return func(s *Server) { s.storage = st }
}

// NewServer creates a server with the given dependencies.
func NewServer(svc *classifier.Service, cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		service: svc,
		config:  cfg,
		logger:  utils.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.Post("/explain", s.handleExplain)
		r.Post("/indexes/{version}", s.handleRebuild)
		r.Get("/taxonomies", s.handleListTaxonomies)
		r.Get("/taxonomies/{version}", s.handleGetTaxonomy)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
