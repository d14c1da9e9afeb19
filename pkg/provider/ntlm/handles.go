package ntlm

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"

	"github.com/marmos91/netsspi/pkg/wire"
)

// newHandle returns a random non-zero handle derived from a v4 UUID.
func newHandle() wire.Handle {
	for {
		u := uuid.New()
		h := wire.Handle{
			Lower: binary.LittleEndian.Uint64(u[:8]),
			Upper: binary.LittleEndian.Uint64(u[8:]),
		}
		if !h.IsZero() {
			return h
		}
	}
}

type tableEntry[T any] struct {
	owner string
	value T
}

// handleTable maps handles to provider objects. Each entry records the
// connection that created it so a closed connection's handles can be
// released together.
// onChange, when set, receives the entry count after every change and is
// called with the table lock held.
type handleTable[T any] struct {
	mu       sync.Mutex
	entries  map[wire.Handle]tableEntry[T]
	onChange func(n int)
}

func newHandleTable[T any](onChange func(n int)) *handleTable[T] {
	return &handleTable[T]{entries: make(map[wire.Handle]tableEntry[T]), onChange: onChange}
}

func (t *handleTable[T]) changed() {
	if t.onChange != nil {
		t.onChange(len(t.entries))
	}
}

func (t *handleTable[T]) add(owner string, v T) wire.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		h := newHandle()
		if _, exists := t.entries[h]; exists {
			continue
		}
		t.entries[h] = tableEntry[T]{owner: owner, value: v}
		t.changed()
		return h
	}
}

func (t *handleTable[T]) get(h wire.Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[h]
	return e.value, ok
}

func (t *handleTable[T]) remove(h wire.Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
		t.changed()
	}
	return e.value, ok
}

// removeOwner drops every entry created by owner and returns how many.
func (t *handleTable[T]) removeOwner(owner string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for h, e := range t.entries {
		if e.owner == owner {
			delete(t.entries, h)
			n++
		}
	}
	if n > 0 {
		t.changed()
	}
	return n
}

func (t *handleTable[T]) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
