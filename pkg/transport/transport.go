package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Kind names a transport backend.
type Kind string

const (
	KindTCP    Kind = "tcp"
	KindIPC    Kind = "ipc"
	KindSerial Kind = "serial"
)

// ParseKind maps a configuration value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTCP, KindIPC, KindSerial:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, s)
	}
}

// Available reports whether kind can be constructed on this platform.
func Available(kind Kind) bool {
	switch kind {
	case KindTCP, KindIPC:
		return true
	case KindSerial:
		return serialAvailable
	default:
		return false
	}
}

// Role is the side of the connection a Context plays.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Backend is the four-operation contract every transport implements.
type Backend interface {
	Open(ctx context.Context) error
	Close() error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// deadliner is implemented by backends that support per-call deadlines.
type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// addresser is implemented by backends that know their peer address.
type addresser interface {
	RemoteAddr() net.Addr
}

// RetryPolicy bounds Connect's exponential backoff.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsed stops retrying after this long. Zero retries until the
	// context is cancelled.
	MaxElapsed time.Duration
}

// Options tune a Context. Zero values mean no deadline and backend defaults.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Retry        RetryPolicy
	// BaudRate applies to serial devices only.
	BaudRate int
}

type state int32

const (
	stateNew state = iota
	stateOpening
	stateOpen
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateOpening:
		return "opening"
	case stateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Context is one logical connection bound to a single backend.
type Context struct {
	id      string
	role    Role
	kind    Kind
	target  string
	backend Backend
	opts    Options

	state atomic.Int32
}

// New builds a Context for kind.
func New(kind Kind, role Role, target string, opts Options) (*Context, error) {
	switch kind {
	case KindTCP:
		return NewTCP(role, target, opts), nil
	case KindIPC:
		return NewIPC(role, target, opts), nil
	case KindSerial:
		return NewSerial(role, target, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, kind)
	}
}

// NewWithBackend builds a Context around a caller-supplied backend.
func NewWithBackend(kind Kind, role Role, target string, b Backend, opts Options) *Context {
	return &Context{
		id:      uuid.NewString(),
		role:    role,
		kind:    kind,
		target:  target,
		backend: b,
		opts:    opts,
	}
}

// newOpenContext wraps a backend that is already connected.
func newOpenContext(kind Kind, role Role, target string, b Backend, opts Options) *Context {
	c := NewWithBackend(kind, role, target, b, opts)
	c.state.Store(int32(stateOpen))
	return c
}

// ID returns a unique identifier for the connection, used in logs.
func (c *Context) ID() string { return c.id }

// Role returns the side this Context plays.
func (c *Context) Role() Role { return c.role }

// Kind returns the transport name.
func (c *Context) Kind() Kind { return c.kind }

// Target returns the address or device the Context was built for.
func (c *Context) Target() string { return c.target }

// RemoteAddr returns the peer address when the backend knows it, otherwise
// the target.
func (c *Context) RemoteAddr() string {
	if a, ok := c.backend.(addresser); ok {
		if addr := a.RemoteAddr(); addr != nil {
			return addr.String()
		}
	}
	return c.target
}

func (c *Context) loadState() state {
	return state(c.state.Load())
}

// Open connects (client), accepts one peer (server) or opens the device.
// Calling Open on a Context that is not new returns ErrInvalidState.
func (c *Context) Open(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(stateNew), int32(stateOpening)) {
		return fmt.Errorf("%w: open in state %s", ErrInvalidState, c.loadState())
	}
	if err := c.backend.Open(ctx); err != nil {
		c.state.CompareAndSwap(int32(stateOpening), int32(stateNew))
		return err
	}
	if !c.state.CompareAndSwap(int32(stateOpening), int32(stateOpen)) {
		_ = c.backend.Close()
		return ErrConnectionClosed
	}
	return nil
}

// Close releases the backend. Only the first call has an effect.
func (c *Context) Close() error {
	for {
		s := c.loadState()
		if s == stateClosed {
			return nil
		}
		if c.state.CompareAndSwap(int32(s), int32(stateClosed)) {
			if s == stateNew {
				return nil
			}
			return c.backend.Close()
		}
	}
}

func (c *Context) ready(op string) error {
	switch s := c.loadState(); s {
	case stateOpen:
		return nil
	case stateClosed:
		return ErrConnectionClosed
	default:
		return fmt.Errorf("%w: %s in state %s", ErrInvalidState, op, s)
	}
}

// Read reads up to len(p) bytes. A configured ReadTimeout is applied per call.
func (c *Context) Read(p []byte) (int, error) {
	if err := c.ready("read"); err != nil {
		return 0, err
	}
	if c.opts.ReadTimeout > 0 {
		if d, ok := c.backend.(deadliner); ok {
			_ = d.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		}
	}
	return c.backend.Read(p)
}

// Write writes up to len(p) bytes. A configured WriteTimeout is applied per call.
func (c *Context) Write(p []byte) (int, error) {
	if err := c.ready("write"); err != nil {
		return 0, err
	}
	if c.opts.WriteTimeout > 0 {
		if d, ok := c.backend.(deadliner); ok {
			_ = d.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
		}
	}
	return c.backend.Write(p)
}

// Interrupt sets an immediate read deadline so a blocked Read returns. It is
// used during shutdown and is a no-op for backends without deadlines.
func (c *Context) Interrupt() {
	if d, ok := c.backend.(deadliner); ok {
		_ = d.SetReadDeadline(time.Now())
	}
}

func (c *Context) String() string {
	return fmt.Sprintf("%s %s %s", c.kind, c.role, c.target)
}
