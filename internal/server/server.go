package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sanonone/genomemap/internal/config"
	"github.com/sanonone/genomemap/internal/server/ui"
	"github.com/sanonone/genomemap/pkg/search"
)

// Server exposes the movie and tag search engines over HTTP.
type Server struct {
	Movies *search.MovieSearchEngine
	Tags   *search.TagSearchEngine

	httpServer   *http.Server
	authToken    string
	queryTimeout time.Duration
}

// NewServer wires the engines to an HTTP server configured by cfg.
// Both engines must be built from the same map.
func NewServer(movies *search.MovieSearchEngine, tags *search.TagSearchEngine, cfg config.ServerConfig) (*Server, error) {
	if movies == nil || tags == nil {
		return nil, fmt.Errorf("server: both search engines are required")
	}

	s := &Server{
		Movies:       movies,
		Tags:         tags,
		authToken:    cfg.AuthToken,
		queryTimeout: cfg.QueryTimeout,
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	// Chain middlewares: Recovery -> RequestID -> Logging -> CORS -> RateLimit -> Auth -> Mux
	// Recovery must be outer-most to catch everything; CORS answers preflights before auth.

	var handler http.Handler = mux

	handler = s.authMiddleware(handler)

	if cfg.RateLimit > 0 {
		handler = httprate.LimitByIP(cfg.RateLimit, time.Minute)(handler)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler = cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	})(handler)

	handler = s.LoggingMiddleware(handler)
	handler = s.RequestIDMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	rootMux.Handle("GET /ui/", http.StripPrefix("/ui", ui.GetHandler()))
	rootMux.Handle("/", handler)
	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      rootMux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until it is shut down.
func (s *Server) Run() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server, waiting up to 5 seconds for running queries.
func (s *Server) Shutdown() {
	slog.Info("Starting graceful shutdown of HTTP Server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
}
