package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed = errors.New("resource backend closed")
	ErrFull   = errors.New("resource backend full")
)

// LocalBackend is an in-memory, generation-checked handle store.
type LocalBackend struct {
	entries  []entry
	freeList []uint32
	mu       sync.RWMutex
	live     int
	closed   bool
}

type entry struct {
	value any
	kind  Kind
	gen   uint16
	valid bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(kind Kind, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	if n := len(b.freeList); n > 0 {
		idx := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		e := &b.entries[idx-1]
		e.value, e.kind, e.valid = value, kind, true
		b.live++
		return makeHandle(idx, e.gen), nil
	}

	if len(b.entries) >= MaxEntries {
		return 0, ErrFull
	}
	b.entries = append(b.entries, entry{kind: kind, value: value, gen: 1, valid: true})
	b.live++
	return makeHandle(uint32(len(b.entries)), 1), nil
}

// lookup returns the entry for a handle whose index and generation match.
// Callers hold b.mu.
func (b *LocalBackend) lookup(h Handle) *entry {
	idx := h.index()
	if h <= 0 || idx == 0 || int(idx) > len(b.entries) {
		return nil
	}
	e := &b.entries[idx-1]
	if !e.valid || e.gen != h.generation() {
		return nil
	}
	return e
}

// Get retrieves a value and its kind by handle.
func (b *LocalBackend) Get(h Handle) (any, Kind, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(h)
	if e == nil {
		return nil, 0, false
	}
	return e.value, e.kind, true
}

// Drop removes a resource. The entry's generation advances so the dropped
// handle never validates again.
func (b *LocalBackend) Drop(h Handle) (any, Kind, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(h)
	if e == nil {
		return nil, 0, false
	}

	value, kind := e.value, e.kind
	e.valid = false
	e.value = nil
	e.gen = (e.gen + 1) & genMask
	if e.gen == 0 {
		e.gen = 1
	}
	b.freeList = append(b.freeList, h.index())
	b.live--
	return value, kind, true
}

// Close releases all resources.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				d.Drop()
			}
		}
	}

	b.entries = nil
	b.freeList = nil
	b.live = 0
	return nil
}

// Len returns the number of active resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each iterates over all active resources.
func (b *LocalBackend) Each(fn func(Handle, Kind, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i+1), e.gen), e.kind, e.value) {
				break
			}
		}
	}
}
