// Package server provides the HTTP API for katalog.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/katalog/internal/config"
	"github.com/hyperjump/katalog/internal/keyword"
	"github.com/hyperjump/katalog/internal/search"
)

// maxUploadBytes bounds multipart image uploads.
const maxUploadBytes = 10 << 20

// Reloader reloads the catalog snapshot behind the search engine.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Server is the HTTP server for the katalog API.
type Server struct {
	engine   *search.Engine
	reloader Reloader
	config   *config.Config
	logger   *zap.Logger
	keywords *keyword.Index
	server   *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithKeywordIndex enables the q filter of the item listing.
func WithKeywordIndex(idx *keyword.Index) ServerOption {
	return func(s *Server) {
		s.keywords = idx
	}
}

// NewServer creates a server with the given dependencies. reloader may be nil,
// in which case the reload endpoint answers 501.
func NewServer(engine *search.Engine, reloader Reloader, cfg *config.Config, logger *zap.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:   engine,
		reloader: reloader,
		config:   cfg,
		logger:   logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/search/text", s.handleSearchText)
		r.Post("/search/image", s.handleSearchImage)
		r.Post("/search/multimodal", s.handleSearchMultimodal)
		r.Get("/items", s.handleListItems)
		r.Get("/items/{id}", s.handleGetItem)
		r.Get("/items/{id}/similar", s.handleSimilar)
		r.Get("/stats", s.handleStats)
		r.Post("/reload", s.handleReload)
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
