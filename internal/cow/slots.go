package cow

import (
	"fmt"
	"sync"
)

// CopyFunc is invoked with the slot and the freshly installed handle every
// time a slot stops sharing its previous handle.
type CopyFunc[T any] func(slot int, h *Handle[T])

// Slots is a per-slot table of copy-on-write handles.
//
// The table itself is guarded by a RWMutex because Map may grow it while
// another context reads its own slot. Values are not guarded: a handle is
// only written in place once it is uniquely owned by one slot.
type Slots[T any] struct {
	mu     sync.RWMutex
	cells  []*Handle[T]
	clone  func(T) T
	onCopy CopyFunc[T]
}

// New creates an empty table. clone must return a deep copy; onCopy may be nil.
func New[T any](clone func(T) T, onCopy CopyFunc[T]) *Slots[T] {
	return &Slots[T]{clone: clone, onCopy: onCopy}
}

// lookup returns the handle for slot or nil. Caller holds mu.
func (s *Slots[T]) lookup(slot int) *Handle[T] {
	if slot < 0 || slot >= len(s.cells) {
		return nil
	}
	return s.cells[slot]
}

// grow ensures slot is addressable. Caller holds mu for writing.
func (s *Slots[T]) grow(slot int) {
	if slot < 0 {
		panic(fmt.Sprintf("cow: negative slot %d", slot))
	}
	if slot >= len(s.cells) {
		s.cells = append(s.cells, make([]*Handle[T], slot+1-len(s.cells))...)
	}
}

// Get returns the value visible from slot. Panics if slot is unmapped.
func (s *Slots[T]) Get(slot int) T {
	s.mu.RLock()
	h := s.lookup(slot)
	s.mu.RUnlock()
	if h == nil {
		panic(fmt.Sprintf("cow: read of unmapped slot %d", slot))
	}
	return h.v
}

// Handle returns slot's current handle, or nil when unmapped.
func (s *Slots[T]) Handle(slot int) *Handle[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(slot)
}

// Mut returns a writable pointer to slot's value, cloning first when the
// handle is shared. After Mut the slot owns its handle exclusively.
// Panics if slot is unmapped.
func (s *Slots[T]) Mut(slot int) *T {
	s.mu.Lock()
	h := s.lookup(slot)
	if h == nil {
		s.mu.Unlock()
		panic(fmt.Sprintf("cow: write to unmapped slot %d", slot))
	}
	if h.Unique() {
		s.mu.Unlock()
		return &h.v
	}

	c := NewHandle(s.clone(h.v)).Retain()
	s.cells[slot] = c
	h.Release()
	s.mu.Unlock()

	if s.onCopy != nil {
		s.onCopy(slot, c)
	}
	return &c.v
}

// Map shares from's handle with to. Panics if from is unmapped.
func (s *Slots[T]) Map(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.lookup(from)
	if h == nil {
		panic(fmt.Sprintf("cow: map from unmapped slot %d", from))
	}
	s.grow(to)
	if old := s.cells[to]; old != nil {
		if old == h {
			return
		}
		old.Release()
	}
	s.cells[to] = h.Retain()
}

// Unmap clears slot. Unmapping an unmapped slot is a no-op.
func (s *Slots[T]) Unmap(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h := s.lookup(slot); h != nil {
		h.Release()
		s.cells[slot] = nil
	}
}

// IsMapped reports whether slot holds a handle.
func (s *Slots[T]) IsMapped(slot int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(slot) != nil
}

// Setup installs def into slot unless it already holds a handle.
func (s *Slots[T]) Setup(slot int, def T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grow(slot)
	if s.cells[slot] == nil {
		s.cells[slot] = NewHandle(def).Retain()
	}
}

// Apply installs h into slot. When h differs from the previous handle the
// on-copy callback runs and Apply returns true; installing the same handle
// again is a no-op.
func (s *Slots[T]) Apply(slot int, h *Handle[T]) bool {
	s.mu.Lock()
	s.grow(slot)
	old := s.cells[slot]
	if old == h {
		s.mu.Unlock()
		return false
	}
	s.cells[slot] = h.Retain()
	if old != nil {
		old.Release()
	}
	s.mu.Unlock()

	if s.onCopy != nil {
		s.onCopy(slot, h)
	}
	return true
}

// Mapped returns the indices of every mapped slot in ascending order.
func (s *Slots[T]) Mapped() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []int
	for i, h := range s.cells {
		if h != nil {
			out = append(out, i)
		}
	}
	return out
}
