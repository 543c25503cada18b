// Package server exposes the snippet store over HTTP and a WebSocket
// bridge for the browser extension.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aparetext/aparetext/internal/analytics"
	"github.com/aparetext/aparetext/internal/config"
	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/template"
	"github.com/aparetext/aparetext/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Server holds the router and the services the handlers call into.
type Server struct {
	cfg      config.ServerConfig
	router   chi.Router
	logger   *slog.Logger
	snippets *services.SnippetService
	settings *services.SettingsService
	analyzer *analytics.Analyzer
	expander *usecase.Expander
	parser   *template.Parser
}

// New wires the handlers against dbCtx. A nil logger discards output.
func New(cfg config.ServerConfig, dbCtx *database.Context, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	parser := template.NewParser()
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		snippets: services.NewSnippetService(dbCtx, services.WithLogger(logger)),
		settings: services.NewSettingsService(dbCtx),
		analyzer: analytics.NewAnalyzer(dbCtx),
		expander: usecase.NewExpander(dbCtx, parser, services.WithLogger(logger)),
		parser:   parser,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors(s.cfg.AllowedOrigins))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ws", s.handleWebSocket)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", s.handleListSnippets)
			r.Post("/", s.handleCreateSnippet)
			r.Get("/search", s.handleSearchSnippets)
			r.Get("/abbreviation/{abbreviation}", s.handleGetByAbbreviation)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSnippet)
				r.Put("/", s.handleUpdateSnippet)
				r.Delete("/", s.handleDeleteSnippet)
				r.Post("/expand", s.handleExpandByID)
				r.Post("/usage", s.handleLogUsage)
				r.Get("/versions", s.handleListVersions)
				r.Get("/versions/{versionID}", s.handleGetVersion)
				r.Post("/versions/{versionID}/restore", s.handleRestoreVersion)
				r.Get("/diff", s.handleDiffVersions)
			})
		})

		r.Post("/expand", s.handleExpand)
		r.Get("/stats", s.handleStats)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleReplaceSettings)
		r.Post("/template/validate", s.handleValidateTemplate)
		r.Post("/template/info", s.handleTemplateInfo)
		r.Post("/template/preview", s.handlePreviewTemplate)
	})
}

// ServeHTTP makes Server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
