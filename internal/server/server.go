// Package server exposes a running engine and its layer store over HTTP.
//
// The API is a thin editing surface: routes under /api mirror the engine's
// edit methods (parameter and structural edits, mode switching, explicit
// runs) and read endpoints return engine status and stored layers. Layers
// travel in the same tagged JSON format the stores persist, so an API
// client decodes them with the regular grid codec.
//
// Error responses share one envelope: {"error":{"code","message"}} with a
// machine-readable code and an HTTP status derived from it.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rastermill/rastermill/pkg/engine"
	"github.com/rastermill/rastermill/pkg/layerstore"
)

// Config carries the server's collaborators. Engine and Store are
// required; the zero values of the rest are usable.
type Config struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr string
	// Engine is the engine the API edits and queries.
	Engine *engine.Engine
	// Store serves the layer read endpoints.
	Store layerstore.Store
	// Logger receives request and lifecycle logging. Defaults to
	// [log.Default].
	Logger *log.Logger
}

// Server is the HTTP front of an engine.
type Server struct {
	engine *engine.Engine
	store  layerstore.Store
	logger *log.Logger
	srv    *http.Server
}

// New creates a server from cfg. The listener does not start until
// [Server.Start].
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	s := &Server{
		engine: cfg.Engine,
		store:  cfg.Store,
		logger: cfg.Logger,
	}
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler assembles the router. It is exported so tests and embedders can
// serve the API without binding a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/run", s.handleRun)
		r.Put("/mode", s.handleMode)

		r.Post("/nodes", s.handleAddNode)
		r.Delete("/nodes/{id}", s.handleRemoveNode)
		r.Patch("/nodes/{id}/params", s.handleSetParams)
		r.Post("/edges", s.handleConnect)

		r.Get("/layers", s.handleListLayers)
		r.Get("/layers/{node}", s.handleGetLayer)
	})

	return r
}

// Start begins serving in a background goroutine. It returns immediately;
// listen errors other than a clean shutdown are logged.
func (s *Server) Start() {
	s.logger.Info("http server listening", "addr", s.srv.Addr)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", "err", err)
		}
	}()
}

// Shutdown stops accepting connections and waits for in-flight requests
// to finish, up to ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// logRequests logs one debug line per request with the final status and
// timing.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}
