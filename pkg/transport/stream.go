package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

type dialFunc func(ctx context.Context, address string) (net.Conn, error)
type listenFunc func(address string) (net.Listener, error)

// streamBackend runs the Backend contract over a net.Conn. TCP and IPC share
// it and differ only in how they dial and listen.
type streamBackend struct {
	role    Role
	address string
	dial    dialFunc
	listen  listenFunc

	mu     sync.Mutex
	conn   net.Conn
	ln     net.Listener
	closed bool
}

func (s *streamBackend) Open(ctx context.Context) error {
	if s.role == RoleClient {
		conn, err := s.dial(ctx, s.address)
		if err != nil {
			return fmt.Errorf("dial %s: %w", s.address, err)
		}
		return s.setConn(conn)
	}

	ln, err := s.listen(s.address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.address, err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrConnectionClosed
	}
	s.ln = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	conn, err := ln.Accept()
	stop()

	s.mu.Lock()
	s.ln = nil
	s.mu.Unlock()
	_ = ln.Close()

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("accept on %s: %w", s.address, err)
	}
	return s.setConn(conn)
}

func (s *streamBackend) setConn(conn net.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = conn.Close()
		return ErrConnectionClosed
	}
	s.conn = conn
	return nil
}

func (s *streamBackend) current() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *streamBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ln != nil {
		_ = s.ln.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *streamBackend) Read(p []byte) (int, error) {
	conn := s.current()
	if conn == nil {
		return 0, ErrConnectionClosed
	}
	return conn.Read(p)
}

func (s *streamBackend) Write(p []byte) (int, error) {
	conn := s.current()
	if conn == nil {
		return 0, ErrConnectionClosed
	}
	return conn.Write(p)
}

func (s *streamBackend) SetReadDeadline(t time.Time) error {
	if conn := s.current(); conn != nil {
		return conn.SetReadDeadline(t)
	}
	return nil
}

func (s *streamBackend) SetWriteDeadline(t time.Time) error {
	if conn := s.current(); conn != nil {
		return conn.SetWriteDeadline(t)
	}
	return nil
}

func (s *streamBackend) RemoteAddr() net.Addr {
	if conn := s.current(); conn != nil {
		return conn.RemoteAddr()
	}
	return nil
}

// connBackend returns a streamBackend over an already established conn.
func connBackend(role Role, conn net.Conn) *streamBackend {
	return &streamBackend{role: role, address: conn.LocalAddr().String(), conn: conn}
}
