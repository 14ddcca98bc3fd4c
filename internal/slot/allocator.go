package slot

import (
	"fmt"
	"sync"
)

// Main is the slot index of the permanent main context.
const Main = 0

// Allocator hands out slot indices.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Allocator struct {
	mu    sync.Mutex
	next  int    // first never-issued index
	free  []int  // recycled indices, popped LIFO
	used  []bool // used[i] reports whether index i is currently issued
	inUse int
}

// New creates an empty allocator. The first Allocate returns Main.
func New() *Allocator {
	return &Allocator{}
}

// Allocate returns a free slot index, recycling before growing.
func (a *Allocator) Allocate() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	var s int
	if n := len(a.free); n > 0 {
		s = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		s = a.next
		a.next++
		a.used = append(a.used, false)
	}
	a.used[s] = true
	a.inUse++
	return s
}

// Free returns s to the pool.
//
// Panics on a double free, an index that was never issued, or an attempt to
// free Main while other slots are still in use.
func (a *Allocator) Free(s int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s < 0 || s >= a.next || !a.used[s] {
		panic(fmt.Sprintf("slot: free of unallocated slot %d", s))
	}
	if s == Main && a.inUse > 1 {
		panic(fmt.Sprintf("slot: main slot freed with %d other slots in use", a.inUse-1))
	}
	a.used[s] = false
	a.inUse--
	a.free = append(a.free, s)
}

// InUse returns the number of currently issued slots.
func (a *Allocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// Capacity returns the number of distinct indices ever issued since the
// last Reset. Every issued index is below Capacity.
func (a *Allocator) Capacity() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Reset discards all bookkeeping so the next Allocate returns Main again.
// Panics if any slot is still in use.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.inUse != 0 {
		panic(fmt.Sprintf("slot: reset with %d slots in use", a.inUse))
	}
	a.next = 0
	a.free = nil
	a.used = nil
}
