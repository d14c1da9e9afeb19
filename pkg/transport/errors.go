package transport

import (
	"errors"
	"io"
	"net"
	"os"
)

var (
	// ErrInvalidState is returned when a Context is used out of order: Open
	// twice, Read or Write before Open, or Connect on a server.
	ErrInvalidState = errors.New("transport: invalid state")

	// ErrConnectionClosed is returned once the peer or the local side has
	// closed the connection.
	ErrConnectionClosed = errors.New("transport: connection closed")

	// ErrUnsupportedBackend is returned for a transport kind that is unknown
	// or unavailable on this platform.
	ErrUnsupportedBackend = errors.New("transport: unsupported backend")
)

// IsClosed reports whether err means the connection is gone rather than a
// transient failure.
func IsClosed(err error) bool {
	return errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed)
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
