package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/netsspi/internal/logger"
	"github.com/marmos91/netsspi/pkg/metrics"
	"github.com/marmos91/netsspi/pkg/transport"
)

// DefaultShutdownTimeout applies when ServerConfig.ShutdownTimeout is zero.
const DefaultShutdownTimeout = 30 * time.Second

// ServerConfig holds the server role settings.
type ServerConfig struct {
	// MaxConnections limits the number of concurrently served connections.
	// 0 means unlimited.
	MaxConnections int

	// MaxMessageSize caps the TotalLength of requests. 0 means no cap.
	MaxMessageSize int

	// ShutdownTimeout is the maximum duration to wait for active connections
	// to complete during graceful shutdown.
	ShutdownTimeout time.Duration

	// MetricsLogInterval is the interval at which to log server metrics.
	// 0 disables periodic metrics logging.
	MetricsLogInterval time.Duration
}

// Acceptor yields open server Contexts. *transport.Listener satisfies it.
type Acceptor interface {
	Accept() (*transport.Context, error)
	Addr() net.Addr
	Close() error
}

// Server runs the server role: it accepts connections, reads requests in
// order, hands them to a Provider and writes the responses.
//
// Thread safety:
// All exported methods are safe for concurrent use. Shutdown uses sync.Once
// so Stop may be called multiple times.
type Server struct {
	cfg      ServerConfig
	provider Provider
	metrics  metrics.DispatchMetrics

	listener   Acceptor
	listenerMu sync.RWMutex

	// listenerReady is closed once Serve has a listener.
	listenerReady chan struct{}
	readyOnce     sync.Once

	// activeConns tracks serving goroutines for graceful shutdown.
	activeConns sync.WaitGroup
	connCount   atomic.Int32

	// conns maps connection ID to *transport.Context for interrupt and
	// forced closure.
	conns sync.Map

	// connSemaphore is nil when MaxConnections is 0.
	connSemaphore chan struct{}

	shutdownOnce sync.Once
	shutdown     chan struct{}

	// shutdownCtx is the parent of every request context and is cancelled
	// when shutdown starts.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc
}

// NewServer creates a stopped Server. m may be nil.
func NewServer(cfg ServerConfig, provider Provider, m metrics.DispatchMetrics) *Server {
	if provider == nil {
		provider = UnimplementedProvider{}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	var connSemaphore chan struct{}
	if cfg.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, cfg.MaxConnections)
		logger.Debug("Connection limit", "max_connections", cfg.MaxConnections)
	} else {
		logger.Debug("Connection limit", "max_connections", "unlimited")
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &Server{
		cfg:            cfg,
		provider:       provider,
		metrics:        m,
		listenerReady:  make(chan struct{}),
		connSemaphore:  connSemaphore,
		shutdown:       make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}
}

// ListenAndServe binds address for kind and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, kind transport.Kind, address string, opts transport.Options) error {
	ln, err := transport.Listen(kind, address, opts)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled or Stop is
// called, serving each on its own goroutine. ln is closed on return.
//
// Returns:
//   - nil on graceful shutdown
//   - error if shutdown timed out and connections were force-closed
func (s *Server) Serve(ctx context.Context, ln Acceptor) error {
	select {
	case <-s.shutdown:
		_ = ln.Close()
		return ErrServerClosed
	default:
	}

	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()
	s.readyOnce.Do(func() { close(s.listenerReady) })

	logger.Info("Server listening", "address", ln.Addr().String())

	// Monitor context cancellation in separate goroutine
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received", logger.Err(ctx.Err()))
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.cfg.MetricsLogInterval > 0 {
		go s.logMetrics(ctx)
	}

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}

			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.initiateShutdown()
				return s.gracefulShutdown()
			}
			logger.Debug("Error accepting connection", logger.Err(err))
			continue
		}

		s.track(conn)
		if s.metrics != nil {
			s.metrics.RecordConnectionAccepted()
		}

		go func(conn *transport.Context) {
			defer func() {
				s.untrack(conn)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
			}()
			s.serveConn(conn)
		}(conn)
	}
}

// ServeConn serves a single already-open server Context on the calling
// goroutine until the peer disconnects or the server shuts down. Serial
// links, which have no listener, are served this way.
func (s *Server) ServeConn(conn *transport.Context) error {
	if conn.Role() != transport.RoleServer {
		return fmt.Errorf("%w: serve on %s context", transport.ErrInvalidState, conn.Role())
	}
	select {
	case <-s.shutdown:
		_ = conn.Close()
		return ErrServerClosed
	default:
	}

	s.track(conn)
	defer s.untrack(conn)
	s.serveConn(conn)
	return nil
}

func (s *Server) track(conn *transport.Context) {
	s.activeConns.Add(1)
	active := s.connCount.Add(1)
	s.conns.Store(conn.ID(), conn)
	if s.metrics != nil {
		s.metrics.SetActiveConnections(active)
	}
	logger.Debug("Connection accepted",
		logger.ConnectionID(conn.ID()),
		logger.RemoteAddr(conn.RemoteAddr()),
		"active", active)
}

func (s *Server) untrack(conn *transport.Context) {
	s.conns.Delete(conn.ID())
	active := s.connCount.Add(-1)
	s.activeConns.Done()
	if s.metrics != nil {
		s.metrics.RecordConnectionClosed()
		s.metrics.SetActiveConnections(active)
	}
	logger.Debug("Connection closed",
		logger.ConnectionID(conn.ID()),
		"active", active)
}

// initiateShutdown signals the server to begin graceful shutdown.
//
// Shutdown sequence:
//  1. Close shutdown channel (signals accept loop to stop)
//  2. Close listener (stops accepting new connections)
//  3. Interrupt blocking reads on all active connections
//  4. Cancel shutdownCtx (signals in-flight requests to abort)
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Shutdown initiated")

		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				logger.Debug("Error closing listener", logger.Err(err))
			}
		}
		s.listenerMu.Unlock()

		s.interruptBlockingReads()
		s.cancelRequests()
	})
}

// interruptBlockingReads expires the read deadline of every active
// connection so blocked reads return.
func (s *Server) interruptBlockingReads() {
	s.conns.Range(func(_, value any) bool {
		value.(*transport.Context).Interrupt()
		return true
	})
	logger.Debug("Shutdown: interrupted blocking reads on all connections")
}

// gracefulShutdown waits for active connections to complete or timeout.
func (s *Server) gracefulShutdown() error {
	logger.Info("Graceful shutdown: waiting for active connections",
		"active", s.connCount.Load(), "timeout", s.cfg.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(s.cfg.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("Shutdown timeout exceeded - forcing closure",
			"active", remaining, "timeout", s.cfg.ShutdownTimeout)
		s.forceCloseConnections()
		return fmt.Errorf("shutdown timeout: %d connections force-closed", remaining)
	}
}

// forceCloseConnections closes every remaining connection.
func (s *Server) forceCloseConnections() {
	closed := 0
	s.conns.Range(func(key, value any) bool {
		if err := value.(*transport.Context).Close(); err != nil {
			logger.Debug("Error force-closing connection", logger.ConnectionID(key.(string)), logger.Err(err))
			return true
		}
		closed++
		if s.metrics != nil {
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})
	if closed > 0 {
		logger.Info("Force-closed connections", "count", closed)
	}
}

// Stop initiates graceful shutdown and waits for active connections until
// ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.Warn("Shutdown context cancelled",
			"active", s.connCount.Load(), logger.Err(ctx.Err()))
		s.forceCloseConnections()
		return ctx.Err()
	}
}

// logMetrics periodically logs server metrics for monitoring.
func (s *Server) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			logger.Info("Server metrics", "active_connections", s.connCount.Load())
		}
	}
}

// ActiveConnections returns the current number of served connections.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}

// Addr blocks until Serve has a listener and returns its address.
func (s *Server) Addr() net.Addr {
	<-s.listenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	return s.listener.Addr()
}

// Ready reports whether the server is serving and not shutting down. A
// server driven only through ServeConn is ready while a connection is open.
func (s *Server) Ready() bool {
	select {
	case <-s.shutdown:
		return false
	default:
	}
	select {
	case <-s.listenerReady:
		return true
	default:
		return s.connCount.Load() > 0
	}
}
