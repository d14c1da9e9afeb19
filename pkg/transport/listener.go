package transport

import (
	"fmt"
	"net"
)

// Listener accepts peers for the server role. Each accepted peer becomes an
// open server Context carrying the listener's Options.
type Listener struct {
	kind Kind
	ln   net.Listener
	opts Options
}

// Listen binds address for kind. Serial links are point to point and have no
// listener; serve them with NewSerial directly.
func Listen(kind Kind, address string, opts Options) (*Listener, error) {
	var (
		ln  net.Listener
		err error
	)
	switch kind {
	case KindTCP:
		ln, err = listenTCP(address)
	case KindIPC:
		ln, err = listenIPC(ipcPath(address))
	default:
		return nil, fmt.Errorf("%w: no listener for %q", ErrUnsupportedBackend, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", kind, address, err)
	}
	return &Listener{kind: kind, ln: ln, opts: opts}, nil
}

// Accept blocks until a peer connects or the listener is closed.
func (l *Listener) Accept() (*Context, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	if l.kind == KindTCP {
		setNoDelay(conn)
	}
	return newOpenContext(l.kind, RoleServer, conn.RemoteAddr().String(), connBackend(RoleServer, conn), l.opts), nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Kind returns the transport kind.
func (l *Listener) Kind() Kind {
	return l.kind
}

// Close stops accepting. Contexts already accepted stay open.
func (l *Listener) Close() error {
	return l.ln.Close()
}
