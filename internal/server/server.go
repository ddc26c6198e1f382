// Package server provides the HTTP API for fuda.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/config"
	"github.com/hyperjump/fuda/internal/dataset"
	"github.com/hyperjump/fuda/internal/keyword"
	"github.com/hyperjump/fuda/internal/project"
	"github.com/hyperjump/fuda/internal/search"
	"github.com/hyperjump/fuda/internal/vector"
)

// Server is the HTTP server for the fuda API.
type Server struct {
	datasets *dataset.Store
	projects *project.Store
	manager  *vector.Manager
	searcher *search.Service
	filter   *keyword.Filter
	config   *config.Config
	logger   *zap.Logger
	sessions *sessionRegistry
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	datasets *dataset.Store,
	projects *project.Store,
	manager *vector.Manager,
	searcher *search.Service,
	filter *keyword.Filter,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		datasets: datasets,
		projects: projects,
		manager:  manager,
		searcher: searcher,
		filter:   filter,
		config:   cfg,
		logger:   logger,
		sessions: newSessionRegistry(),
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/datasets", s.handleDatasetCreate)
		r.Get("/datasets", s.handleDatasetList)
		r.Get("/datasets/{name}/columns", s.handleDatasetColumns)
		r.Get("/datasets/{name}/slice", s.handleDatasetSlice)
		r.Get("/datasets/{name}/filter", s.handleDatasetFilter)
		r.Post("/datasets/{name}/index", s.handleIndexEnsure)
		r.Get("/datasets/{name}/index", s.handleIndexStatus)
		r.Post("/datasets/{name}/index/cancel", s.handleIndexCancel)

		r.Post("/projects", s.handleProjectCreate)
		r.Get("/projects/{name}", s.handleProjectGet)

		r.Post("/search", s.handleSearch)

		r.Post("/sessions", s.handleSessionCreate)
		r.Get("/sessions/{id}", s.handleSessionGet)
		r.Delete("/sessions/{id}", s.handleSessionDelete)
		r.Post("/sessions/{id}/select", s.handleSessionSelect)
		r.Post("/sessions/{id}/labels", s.handleSessionLabelAdd)
		r.Delete("/sessions/{id}/labels/{value}", s.handleSessionLabelRemove)
		r.Post("/sessions/{id}/edit", s.handleSessionEdit)
		r.Post("/sessions/{id}/reload", s.handleSessionReload)
		r.Post("/sessions/{id}/save", s.handleSessionSave)
	})

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
