package graph

import (
	"sync"

	"github.com/roach88/slotgraph/internal/slot"
)

// entity is implemented by *Node and *Attribute.
type entity interface {
	unmapSlot(slot int)
}

// Context is one version space of the graph.
//
// Thread-safety: a context should be driven by one goroutine at a time.
// Commit may be called from the owner while another goroutine reads the
// pending count; both are guarded.
type Context struct {
	sys       *System
	slot      int
	ephemeral bool
	clock     Clock

	mu      sync.Mutex
	pending *Commit
	closed  bool

	// Entities holding a version in this slot, unmapped on Close so a
	// recycled slot starts empty.
	emu    sync.Mutex
	mapped map[entity]struct{}
}

// Slot returns the context's slot index.
func (c *Context) Slot() int {
	return c.slot
}

// IsMain reports whether this is the system's main context.
func (c *Context) IsMain() bool {
	return c.slot == slot.Main && !c.ephemeral
}

// System returns the owning system.
func (c *Context) System() *System {
	return c.sys
}

// Pending returns the number of changes recorded since the last Commit.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Len()
}

// Closed reports whether Close has run.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// recording reports whether mutations in this context produce changes.
func (c *Context) recording() bool {
	return !c.ephemeral && c.sys.recording()
}

// Map shares root and everything reachable from it in this context with to.
//
// Returns a *ContextError with ErrCodePendingChanges if this context has
// uncommitted changes. Panics if root is not mapped here.
func (c *Context) Map(root *Node, to *Context) error {
	if err := c.checkMap(to); err != nil {
		return err
	}
	if !root.cells.IsMapped(c.slot) {
		invariantf("map of node %s not mapped in slot %d", root.Key(), c.slot)
	}
	walk(c.slot, root, &mapper{from: c.slot, to: to, adopt: true})
	return nil
}

// MapAttribute shares a standalone attribute's version with to.
// Same preconditions as Map.
func (c *Context) MapAttribute(a *Attribute, to *Context) error {
	if err := c.checkMap(to); err != nil {
		return err
	}
	a.mapSlot(c.slot, to)
	return nil
}

func (c *Context) checkMap(to *Context) error {
	c.mustBeOpen()
	if to == c {
		return &ContextError{Code: ErrCodeSameContext, Message: "cannot map a context into itself", Slot: c.slot}
	}
	if to.Closed() {
		return &ContextError{Code: ErrCodeContextClosed, Message: "target context is closed", Slot: to.slot}
	}
	if n := c.Pending(); n > 0 {
		return newPendingChangesError(c.slot, n)
	}
	return nil
}

// Unmap releases root and everything reachable from it in this context,
// attributes first, then nodes bottom-up. Parent links held by nodes that
// stay mapped are left untouched.
func (c *Context) Unmap(root *Node) {
	c.mustBeOpen()
	walk(c.slot, root, &unmapper{ctx: c})
}

// AddChange appends ch to the pending commit. When only one slot is
// allocated the change is released and nothing is recorded.
func (c *Context) AddChange(ch *Change) bool {
	if !c.recording() {
		ch.release()
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		invariantf("change recorded in closed context %d", c.slot)
	}
	ch.seq = c.clock.Next()
	c.pending.changes = append(c.pending.changes, ch)
	c.mu.Unlock()

	c.sys.observer.ChangeRecorded(c.slot, ch.typ)
	return true
}

// Commit swaps out the pending changes for an empty log and returns them.
func (c *Context) Commit() *Commit {
	c.mu.Lock()
	out := c.pending
	c.pending = newCommit(c.slot)
	c.mu.Unlock()

	out.id = c.sys.ids.Generate()
	c.sys.observer.CommitExported(c.slot, out.Len())
	if out.Len() > 0 {
		c.sys.logger.Debug("commit exported",
			"slot", c.slot,
			"commit", out.id,
			"changes", out.Len(),
		)
	}
	return out
}

// Apply replays cm against this context and consumes it.
func (c *Context) Apply(cm *Commit) ApplyResult {
	c.mustBeOpen()
	return cm.apply(c)
}

// Close releases the context's slot.
//
// Panics if changes are pending, if the context was already closed, or, for
// the main context, if any other slot is still allocated.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		invariantf("context %d closed twice", c.slot)
	}
	if n := c.pending.Len(); n > 0 {
		c.mu.Unlock()
		invariantf("context %d closed with %d pending changes", c.slot, n)
	}
	if c.IsMain() {
		if n := c.sys.alloc.InUse(); n > 1 {
			c.mu.Unlock()
			invariantf("main context closed with %d other slots allocated", n-1)
		}
	}
	c.closed = true
	c.mu.Unlock()

	c.emu.Lock()
	for e := range c.mapped {
		e.unmapSlot(c.slot)
	}
	c.mapped = nil
	c.emu.Unlock()

	c.sys.release(c)
}

func (c *Context) mustBeOpen() {
	if c.Closed() {
		invariantf("use of closed context %d", c.slot)
	}
}

func (c *Context) track(e entity) {
	c.emu.Lock()
	if c.mapped != nil {
		c.mapped[e] = struct{}{}
	}
	c.emu.Unlock()
}

func (c *Context) untrack(e entity) {
	c.emu.Lock()
	delete(c.mapped, e)
	c.emu.Unlock()
}

// ApplyResult summarizes one Apply call.
type ApplyResult struct {
	Applied int
	Skipped int
}
