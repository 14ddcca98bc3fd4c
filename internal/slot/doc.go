// Package slot issues and recycles the small integer indices that identify
// graph contexts.
//
// An Allocator is the only state shared by every context of a system, so it
// is the only structure in the versioning core that takes a lock. Freed
// indices are reused LIFO before the counter grows, which keeps per-entity
// slot tables dense.
//
// Slot 0 is reserved for the main context. It is never handed back to the
// free list while any other slot is in use.
package slot
