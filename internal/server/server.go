// Package server exposes node generation and editing sessions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"mindnoscape/editor/internal/generate"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP front end of the editor.
type Server struct {
	addr         string
	router       *gin.Engine
	sessions     *session.SessionManager
	generator    generate.Generator
	defaultCount int
	metrics      *Metrics
	validate     *validator.Validate
	logger       *log.Logger
}

// Options configure a Server.
type Options struct {
	Address      string
	Sessions     *session.SessionManager
	Generator    generate.Generator
	DefaultCount int
	Metrics      *Metrics
}

// NewServer builds the router. Metrics may be nil.
func NewServer(opts Options, logger *log.Logger) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session manager not initialized")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator not initialized")
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = generate.DefaultCount
	}

	s := &Server{
		addr:         opts.Address,
		sessions:     opts.Sessions,
		generator:    opts.Generator,
		defaultCount: opts.DefaultCount,
		metrics:      opts.Metrics,
		validate:     validator.New(),
		logger:       logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.POST("/mindmap/generate-nodes", s.handleGenerateNodes)
	api.POST("/sessions", s.handleSessionCreate)
	api.DELETE("/sessions/:id", s.handleSessionDelete)
	api.POST("/sessions/:id/commands", s.handleSessionCommand)
	api.GET("/sessions/:id/tree", s.handleSessionTree)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
	})
	return r
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "HTTP server listening", log.Fields{"address": s.addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve HTTP: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info(ctx, "HTTP server shutting down", nil)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error(c.Request.Context(), "HTTP request failed", fields)
			return
		}
		s.logger.Debug(c.Request.Context(), "HTTP request", fields)
	}
}
