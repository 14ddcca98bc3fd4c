package graph

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/slotgraph/internal/slot"
)

// System owns the slot allocator, the context registry and the main context.
//
// Thread-safety: NewContext, Slots and context lookup are safe from any
// goroutine. Close must run after every other context has been closed.
type System struct {
	alloc *slot.Allocator

	mu       sync.RWMutex
	contexts map[int]*Context

	main     *Context
	logger   *slog.Logger
	observer Observer
	ids      IDGenerator
	nodeSeq  atomic.Uint64
	closed   atomic.Bool
}

// NewSystem creates a system and its main context (slot 0).
func NewSystem(opts ...Option) *System {
	s := &System{
		alloc:    slot.New(),
		contexts: make(map[int]*Context),
		logger:   slog.Default(),
		observer: NopObserver{},
		ids:      UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.main = s.open(false)
	if s.main.slot != slot.Main {
		invariantf("main context allocated slot %d", s.main.slot)
	}
	return s
}

// Main returns the permanent main context.
func (s *System) Main() *Context {
	return s.main
}

// NewContext allocates a slot and returns a fresh context with an empty
// pending commit. The caller must Close it before closing the system.
func (s *System) NewContext() *Context {
	if s.closed.Load() {
		invariantf("new context on closed system")
	}
	return s.open(false)
}

// Slots returns the number of slots currently allocated, including
// snapshot slots held by uncommitted or unapplied insert changes.
func (s *System) Slots() int {
	return s.alloc.InUse()
}

// Context returns the open context using slot, or nil.
func (s *System) Context(slot int) *Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contexts[slot]
}

// Logger returns the system logger.
func (s *System) Logger() *slog.Logger {
	return s.logger
}

// Close closes the main context and resets the allocator.
// Panics unless every other context has been closed and every exported
// commit applied or discarded.
func (s *System) Close() {
	s.main.Close()
}

// recording reports whether mutations should produce changes.
func (s *System) recording() bool {
	return s.alloc.InUse() > 1
}

func (s *System) open(ephemeral bool) *Context {
	sl := s.alloc.Allocate()
	c := &Context{
		sys:       s,
		slot:      sl,
		ephemeral: ephemeral,
		pending:   newCommit(sl),
		mapped:    make(map[entity]struct{}),
	}

	s.mu.Lock()
	s.contexts[sl] = c
	s.mu.Unlock()

	if !ephemeral {
		s.observer.ContextOpened(sl)
	}
	return c
}

func (s *System) release(c *Context) {
	s.mu.Lock()
	delete(s.contexts, c.slot)
	s.mu.Unlock()

	s.alloc.Free(c.slot)
	if c.slot == slot.Main {
		s.alloc.Reset()
		s.closed.Store(true)
	}
	if !c.ephemeral {
		s.observer.ContextClosed(c.slot)
	}
}
