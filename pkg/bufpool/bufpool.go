// Package bufpool provides tiered, reusable byte slices for frame I/O.
//
// Three size classes cover the traffic a NetSSPI connection carries:
//   - Small (default 1KB): headers and handle-only calls
//   - Medium (default 16KB): handshake tokens and signed messages
//   - Large (default 256KB): sealed payloads
//
// Requests above the large class are allocated directly and never pooled.
//
// Usage:
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sync"
)

// Default size classes.
const (
	DefaultSmallSize  = 1 << 10
	DefaultMediumSize = 16 << 10
	DefaultLargeSize  = 256 << 10
)

// Pool hands out slices from the smallest class that fits.
type Pool struct {
	classes [3]sizeClass
}

type sizeClass struct {
	size int
	pool sync.Pool
}

// Config sets the class sizes. Zero fields take the defaults.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// NewPool returns a Pool for cfg. A nil cfg uses the defaults.
func NewPool(cfg *Config) *Pool {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.SmallSize <= 0 {
		c.SmallSize = DefaultSmallSize
	}
	if c.MediumSize <= 0 {
		c.MediumSize = DefaultMediumSize
	}
	if c.LargeSize <= 0 {
		c.LargeSize = DefaultLargeSize
	}

	p := &Pool{}
	for i, size := range []int{c.SmallSize, c.MediumSize, c.LargeSize} {
		size := size
		p.classes[i].size = size
		p.classes[i].pool.New = func() any {
			buf := make([]byte, size)
			return &buf
		}
	}
	return p
}

// Get returns a slice of length size. Its contents are not zeroed.
func (p *Pool) Get(size int) []byte {
	for i := range p.classes {
		c := &p.classes[i]
		if size <= c.size {
			return (*c.pool.Get().(*[]byte))[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to its class. Slices that did not come from Get are
// dropped. buf must not be used afterwards.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	for i := range p.classes {
		c := &p.classes[i]
		if cap(buf) == c.size {
			full := buf[:c.size]
			c.pool.Put(&full)
			return
		}
	}
}

var globalPool = NewPool(nil)

// Get returns a slice of length size from the process-wide pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns buf to the process-wide pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}
