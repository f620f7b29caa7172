// Package server is the development server. Everything it serves is
// recomputed per request: styles are recompiled, islands rebuilt, pages
// and documents rediscovered, so edits show up without a restart.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/conneroisu/isle/internal/bundler"
	"github.com/conneroisu/isle/internal/config"
	"github.com/conneroisu/isle/internal/content"
	"github.com/conneroisu/isle/internal/deps"
	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/livereload"
	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/metrics"
	"github.com/conneroisu/isle/internal/registry"
	"github.com/conneroisu/isle/internal/styles"
)

// Loopback endpoints. They are never prefixed with the base path.
const (
	HealthPath    = "/__health__"
	ReloadPath    = "/__reload__"
	EventsPath    = "/__dev__"
	WebSocketPath = "/__dev__/ws"
	MetricsPath   = "/__metrics__"
)

const shutdownTimeout = 5 * time.Second

// DevServer holds everything the dev routes share.
type DevServer struct {
	cfg      *config.Config
	islands  *registry.Registry
	pipeline *content.Pipeline
	styles   *styles.Compiler
	bundler  *bundler.Bundler
	hub      *livereload.Hub
	urls     content.URLs

	// MetricsHandler serves MetricsPath when set.
	MetricsHandler http.Handler

	logger  logging.Logger
	metrics metrics.Recorder

	// last successful results, used when a recompute fails
	mu    sync.Mutex
	css   string
	docs  []content.Document
	pages *content.Pages
}

// New creates a dev server for cfg.
func New(cfg *config.Config, islands *registry.Registry, logger logging.Logger, rec metrics.Recorder) *DevServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	rec = metrics.OrNoop(rec)
	pipeline := content.NewPipeline(cfg, islands, logger, rec)
	return &DevServer{
		cfg:      cfg,
		islands:  islands,
		pipeline: pipeline,
		styles:   styles.NewCompiler(cfg.Paths.Src, cfg.Paths.Styles, cfg.Paths.StyleModuleCache(), logger, rec),
		bundler:  bundler.New(cfg.Paths.Src, cfg.Paths.Cache, logger, rec),
		hub:      livereload.NewHub(logger, rec),
		urls:     pipeline.URLs,
		logger:   logger.WithComponent("server"),
		metrics:  rec,
	}
}

// Hub returns the live-reload hub.
func (s *DevServer) Hub() *livereload.Hub {
	return s.hub
}

// Handler builds the router.
func (s *DevServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc(HealthPath, s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(ReloadPath, s.handleReload).Methods(http.MethodPost)
	r.HandleFunc(EventsPath, s.hub.ServeSSE).Methods(http.MethodGet)
	r.HandleFunc(WebSocketPath, s.hub.ServeWebSocket).Methods(http.MethodGet)
	if s.MetricsHandler != nil {
		r.Handle(MetricsPath, s.MetricsHandler).Methods(http.MethodGet)
	}

	site := r
	if s.urls.BasePath != "" {
		site = r.PathPrefix(s.urls.BasePath).Subrouter()
	}
	site.HandleFunc("/styles.css", s.handleStyles).Methods(http.MethodGet, http.MethodHead)
	site.HandleFunc("/"+bundler.IslandsDir+"/{name}.{ext:js|css}", s.handleIsland).Methods(http.MethodGet, http.MethodHead)

	r.PathPrefix("/").HandlerFunc(s.handleSite).Methods(http.MethodGet, http.MethodHead)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

// Start compiles styles once, logs the routes and serves until ctx ends.
func (s *DevServer) Start(ctx context.Context) error {
	if _, err := s.stylesheet(ctx); err != nil {
		s.logger.Warn(ctx, err, "Initial style compile failed")
	}
	s.LogRoutes(ctx)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Dev server listening", "addr", httpServer.Addr, "url", s.cfg.Server.BaseURL()+s.urls.URL("/"))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.WrapNetwork(err, errors.ErrCodeInternalError, "dev server failed").
				WithContext("addr", httpServer.Addr)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Shutting down dev server")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.WrapNetwork(err, errors.ErrCodeInternalError, "dev server shutdown failed")
	}
	return <-errCh
}

// LogRoutes logs every page and document route.
func (s *DevServer) LogRoutes(ctx context.Context) {
	pages, err := s.discoverPages()
	if err != nil {
		s.logger.Warn(ctx, err, "Could not discover pages")
	} else {
		for _, p := range pages.All() {
			s.logger.Info(ctx, "Page route", "route", p.Route, "page", p.Name)
		}
	}
	docs, err := s.documents(ctx)
	if err != nil {
		s.logger.Warn(ctx, err, "Could not load documents")
		return
	}
	for _, d := range docs {
		s.logger.Info(ctx, "Document route", "route", s.urls.DocumentRoute(d.Slug), "title", d.Title)
	}
}

// stylesheet recompiles every style module. On failure the last good
// stylesheet is returned alongside the error when one exists.
func (s *DevServer) stylesheet(ctx context.Context) (string, error) {
	css, err := s.styles.Stylesheet(ctx, false)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.css, err
	}
	s.css = css
	return css, nil
}

func (s *DevServer) discoverPages() (*content.Pages, error) {
	pages, err := s.pipeline.Pages()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.pages = pages
	s.mu.Unlock()
	return pages, nil
}

func (s *DevServer) documents(ctx context.Context) ([]content.Document, error) {
	docs, err := s.pipeline.Documents(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
	return docs, nil
}

// plan re-reads the manifest and rescans islands.
func (s *DevServer) plan(ctx context.Context) (*deps.Plan, error) {
	return deps.NewPlan(ctx, s.cfg.Paths.Src, s.cfg.Paths.Manifest, s.islands, s.logger)
}

func (s *DevServer) assembler() *content.Assembler {
	return &content.Assembler{
		URLs: s.urls,
		ImportMap: func(ctx context.Context, islands []string) (string, error) {
			p, err := s.plan(ctx)
			if err != nil {
				return "", err
			}
			return p.ImportMapTag(ctx, islands)
		},
		BodySuffix: livereload.Script(EventsPath),
		Islands:    s.islands,
		Logger:     s.logger,
	}
}
