// Package server exposes the dispatcher message contract and the template,
// log and menu stores over HTTP for other local surfaces.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"reqsender/internal/logger"
	"reqsender/internal/menu"
	"reqsender/internal/model"
	"reqsender/internal/storage"
)

// Sender is the dispatch pipeline used by the handlers
type Sender interface {
	Send(ctx context.Context, t model.RequestTemplate, values map[string]string) (model.LogEntry, error)
	SendSelection(ctx context.Context, t model.RequestTemplate, selected, field string) (model.LogEntry, error)
	Profile() model.Profile
}

// Options wires the server to its collaborators
type Options struct {
	Store   storage.Store
	Sender  Sender
	Menu    *menu.Binder
	Version string
	// Reload re-reads configuration for the reload_extension action
	Reload func() error
}

// Server serves the message contract and the REST surface
type Server struct {
	opts Options
}

// New creates a Server
func New(opts Options) *Server {
	return &Server{opts: opts}
}

// Handler returns the chi router with every route registered
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	s.RegisterMessageRoutes(r)
	s.RegisterTemplateRoutes(r)
	s.RegisterLogRoutes(r)
	s.RegisterMenuRoutes(r)

	r.Get("/version", func(w http.ResponseWriter, req *http.Request) {
		OK(w, req, map[string]string{"version": s.opts.Version}, "")
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("Unhandled route: %s %s", req.Method, req.URL.Path)
		NotFound(w, req, "Route not found", req.URL.Path)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Message server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down message server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s -> %d (%s) [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}
