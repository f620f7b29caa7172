package server

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
	"github.com/gorilla/mux"

	"github.com/conneroisu/isle/internal/bundler"
	"github.com/conneroisu/isle/internal/content"
	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/version"
)

func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
}

func (s *DevServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	noCache(w)
	fmt.Fprintf(w, "ok %s\n", version.Get().Short())
}

// handleReload recompiles styles and pushes a reload to every page.
func (s *DevServer) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := s.stylesheet(ctx); err != nil {
		s.logger.Warn(ctx, err, "Style compile failed before reload")
	}
	delivered := s.hub.Broadcast(ctx)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "reload sent to %d clients\n", delivered)
}

func (s *DevServer) handleStyles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	css, err := s.stylesheet(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to compile styles")
		if css == "" {
			http.Error(w, "Failed to compile styles: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	noCache(w)
	_, _ = w.Write([]byte(css))
}

// handleIsland builds the requested island from scratch on every request.
func (s *DevServer) handleIsland(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	def, ok := s.islands.Get(vars["name"])
	if !ok {
		http.Error(w, "Island not found in registry", http.StatusNotFound)
		return
	}

	plan, err := s.plan(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to resolve island dependencies", "island", def.Name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out, err := s.bundler.Bundle(ctx, def, plan.Externals, bundler.TargetDev)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to bundle island", "island", def.Name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	noCache(w)
	if vars["ext"] == "css" {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		_, _ = w.Write(out.CSS)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write(out.JS)
}

// handleSite resolves pages, then documents, then document assets, then
// public files, then the not-found page.
func (s *DevServer) handleSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := s.urls.Strip(r.URL.Path)
	if !ok {
		s.notFound(w, r)
		return
	}
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}

	pages, err := s.discoverPages()
	if err != nil {
		s.serverError(w, r, err, "Failed to discover pages")
		return
	}
	docs, err := s.documents(ctx)
	if err != nil {
		s.serverError(w, r, err, "Failed to load documents")
		return
	}

	if page, ok := pages.ByRoute(s.urls.URL(p)); ok {
		s.render(w, r, http.StatusOK, "page", s.pipeline.RenderPage(page, docs))
		return
	}

	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	switch len(segments) {
	case 1:
		if doc, ok := content.Find(docs, segments[0]); ok {
			c, err := s.pipeline.RenderDocument(ctx, pages, doc)
			if err != nil {
				s.serverError(w, r, err, "Failed to render document")
				return
			}
			s.render(w, r, http.StatusOK, "document", c)
			return
		}
	case 2:
		if asset, ok := content.Asset(docs, segments[0], segments[1]); ok {
			noCache(w)
			http.ServeFile(w, r, asset)
			return
		}
	}

	if file, ok := s.publicFile(p); ok {
		http.ServeFile(w, r, file)
		return
	}

	s.notFound(w, r)
}

func (s *DevServer) publicFile(p string) (string, bool) {
	if s.cfg.Paths.Public == "" {
		return "", false
	}
	file := filepath.Join(s.cfg.Paths.Public, filepath.FromSlash(path.Clean("/"+p)))
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return "", false
	}
	return file, true
}

// notFound renders the 404 page when one exists.
func (s *DevServer) notFound(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pages := s.pages
	docs := s.docs
	s.mu.Unlock()

	if pages != nil {
		if page, ok := pages.Get(content.NotFoundPage); ok {
			s.render(w, r, http.StatusNotFound, "page", s.pipeline.RenderPage(page, docs))
			return
		}
	}
	http.NotFound(w, r)
}

func (s *DevServer) render(w http.ResponseWriter, r *http.Request, status int, kind string, c templ.Component) {
	html, _, err := s.pipeline.RenderHTML(r.Context(), s.assembler(), kind, c)
	if err != nil {
		s.serverError(w, r, err, "Failed to render "+kind)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	noCache(w)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

func (s *DevServer) serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	s.logger.Error(r.Context(), err, msg, "path", r.URL.Path)
	status := http.StatusInternalServerError
	if errors.IsNotFound(err) {
		status = http.StatusNotFound
	}
	http.Error(w, msg+": "+err.Error(), status)
}
