// Package api exposes the newsletter service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the chi router and the underlying http.Server.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer builds the server with all routes registered.
func NewServer(h *Handlers, authManager AuthRoutes) *Server {
	return &Server{handler: SetupRoutes(h, authManager)}
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the handler for tests.
func (s *Server) Router() http.Handler { return s.handler }
