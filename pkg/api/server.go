// Package api serves the HTTP status endpoints of a netsspi server: the
// health probes and the Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/marmos91/netsspi/internal/logger"
	"github.com/marmos91/netsspi/pkg/api/handlers"
)

// Server is the status HTTP server. It runs beside the dispatch server and
// shuts down with it.
type Server struct {
	cfg  APIConfig
	http *http.Server

	mu       sync.Mutex
	ln       net.Listener
	stopOnce sync.Once
	stopErr  error
}

// NewServer creates a status server for health. Nothing is bound until
// Listen or Start.
func NewServer(cfg APIConfig, health *handlers.HealthHandler) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		cfg: cfg,
		http: &http.Server{
			Handler:      NewRouter(health),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("status server: %w", err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start binds if needed and serves until ctx is cancelled. It returns nil
// after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	addr := s.Addr().String()
	logger.Info("Status server listening", logger.Target(addr))
	logger.Debug("Status endpoints", "health", "http://"+addr+"/health", "metrics", "http://"+addr+"/metrics")

	served := make(chan error, 1)
	go func() { served <- s.http.Serve(s.ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.Stop(stopCtx)
	}
}

// Stop gracefully shuts the server down. Later calls return the first result.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		// Shutdown only closes listeners Serve has seen.
		defer func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.ln != nil {
				_ = s.ln.Close()
			}
		}()
		if err := s.http.Shutdown(ctx); err != nil {
			s.stopErr = fmt.Errorf("status server shutdown: %w", err)
			logger.Warn("Status server shutdown incomplete", logger.Err(err))
			return
		}
		logger.Info("Status server stopped")
	})
	return s.stopErr
}
