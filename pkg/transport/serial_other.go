//go:build !(linux || darwin || freebsd || openbsd || windows)

package transport

import (
	"context"
	"fmt"
)

const serialAvailable = false

type serialBackend struct {
	device string
	baud   int
}

func (s *serialBackend) Open(context.Context) error {
	return fmt.Errorf("%w: serial devices on this platform", ErrUnsupportedBackend)
}

func (s *serialBackend) Close() error              { return nil }
func (s *serialBackend) Read([]byte) (int, error)  { return 0, ErrConnectionClosed }
func (s *serialBackend) Write([]byte) (int, error) { return 0, ErrConnectionClosed }
