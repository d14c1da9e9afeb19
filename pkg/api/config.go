package api

import (
	"net"
	"strconv"
	"time"
)

const (
	defaultStatusPort   = 9090
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = time.Minute
	shutdownGrace       = 5 * time.Second
)

// APIConfig configures the status HTTP server. Zero fields take defaults:
// port 9090, 10s read and write timeouts, 60s idle timeout.
type APIConfig struct {
	// Port is the TCP port on all interfaces.
	Port int

	// Address overrides Port with an explicit host:port, e.g. "127.0.0.1:0".
	Address string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c APIConfig) withDefaults() APIConfig {
	if c.Port <= 0 {
		c.Port = defaultStatusPort
	}
	if c.Address == "" {
		c.Address = net.JoinHostPort("", strconv.Itoa(c.Port))
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	return c
}
