// Package server exposes the resolution engine over HTTP. Progress is
// streamed as server-sent events and finished artifacts are picked up once
// by id.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/glorpus-work/apkfetch/pkg/artifact"
	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/metrics"
	"github.com/glorpus-work/apkfetch/pkg/orchestrator"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Engine runs resolutions and fetches in the background.
type Engine interface {
	Stream(ctx context.Context, req orchestrator.Request, buf int) <-chan orchestrator.Event
	StreamFetch(ctx context.Context, req orchestrator.Request, opts orchestrator.FetchOptions, buf int) <-chan orchestrator.Event
}

// ArtifactSource hands out finished artifacts, each at most once.
type ArtifactSource interface {
	Take(id string) (*artifact.Artifact, error)
}

// Options tune the handlers.
type Options struct {
	EventBuffer int
	Concurrency int
}

// Server serves the HTTP API.
type Server struct {
	engine    Engine
	artifacts ArtifactSource
	opts      Options
}

// New creates a Server.
func New(engine Engine, artifacts ArtifactSource, opts Options) *Server {
	return &Server{engine: engine, artifacts: artifacts, opts: opts}
}

// Router returns the HTTP handler with all routes configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/download-info-stream/{pkg}", s.handleInfoStream)
		r.Get("/download-merged-stream/{pkg}", s.handleMergedStream)
		r.Get("/download-temp/{id}", s.handleDownloadTemp)
	})

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logrus.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("Request served", logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": chimw.GetReqID(r.Context()),
			"duration":   time.Since(start).String(),
		})
	})
}
