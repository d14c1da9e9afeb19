package transport

import (
	"context"
	"net"

	"github.com/marmos91/netsspi/internal/logger"
)

// NewTCP builds a TCP Context. A client connects to target (host:port); a
// server listens on target and accepts a single peer on Open.
func NewTCP(role Role, target string, opts Options) *Context {
	b := &streamBackend{
		role:    role,
		address: target,
		dial:    dialTCP,
		listen:  listenTCP,
	}
	return NewWithBackend(KindTCP, role, target, b, opts)
}

func dialTCP(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	setNoDelay(conn)
	return conn, nil
}

func listenTCP(address string) (net.Listener, error) {
	return net.Listen("tcp", address)
}

// setNoDelay disables Nagle's algorithm: every message is a small
// request/response exchange.
func setNoDelay(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			logger.Debug("Failed to set TCP_NODELAY", logger.KeyError, err)
		}
	}
}
