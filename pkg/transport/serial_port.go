//go:build linux || darwin || freebsd || openbsd || windows

package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.bug.st/serial"
)

const serialAvailable = true

// serialPollInterval bounds a single blocking read so deadlines set while a
// Read is in progress, such as Interrupt, are noticed.
const serialPollInterval = 200 * time.Millisecond

type serialBackend struct {
	device string
	baud   int

	mu       sync.Mutex
	port     serial.Port
	deadline time.Time
}

func (s *serialBackend) Open(_ context.Context) error {
	port, err := serial.Open(s.device, &serial.Mode{
		BaudRate: s.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("open serial device %s: %w", s.device, err)
	}
	s.mu.Lock()
	s.port = port
	s.mu.Unlock()
	return nil
}

func (s *serialBackend) current() (serial.Port, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port, s.deadline
}

func (s *serialBackend) Close() error {
	s.mu.Lock()
	port := s.port
	s.port = nil
	s.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.Close()
}

// Read blocks until at least one byte arrives or the read deadline passes.
// A timed-out port read returns no bytes and no error, so the loop re-arms
// it until the deadline.
func (s *serialBackend) Read(p []byte) (int, error) {
	for {
		port, deadline := s.current()
		if port == nil {
			return 0, ErrConnectionClosed
		}
		wait := serialPollInterval
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			wait = min(wait, left)
		}
		if err := port.SetReadTimeout(wait); err != nil {
			return 0, serialError(err)
		}
		n, err := port.Read(p)
		if err != nil {
			return n, serialError(err)
		}
		if n > 0 {
			return n, nil
		}
	}
}

func (s *serialBackend) Write(p []byte) (int, error) {
	port, _ := s.current()
	if port == nil {
		return 0, ErrConnectionClosed
	}
	n, err := port.Write(p)
	return n, serialError(err)
}

func (s *serialBackend) SetReadDeadline(t time.Time) error {
	s.mu.Lock()
	s.deadline = t
	s.mu.Unlock()
	return nil
}

// SetWriteDeadline is accepted for the deadliner contract; serial writes
// complete once the driver has queued the bytes.
func (s *serialBackend) SetWriteDeadline(time.Time) error {
	return nil
}

func serialError(err error) error {
	var pe *serial.PortError
	if errors.As(err, &pe) && pe.Code() == serial.PortClosed {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return err
}
