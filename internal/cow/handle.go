package cow

import "sync/atomic"

// Handle is a shared-ownership cell holding one version of a value.
//
// The reference count tracks every slot that maps the handle plus every
// external holder that called Retain (e.g. a recorded change). A handle with
// a count of one is exclusively owned and may be written in place.
type Handle[T any] struct {
	v    T
	refs atomic.Int32
}

// NewHandle wraps v in a handle with no owners.
func NewHandle[T any](v T) *Handle[T] {
	return &Handle[T]{v: v}
}

// Value returns the held value.
func (h *Handle[T]) Value() T {
	return h.v
}

// Retain adds an owner and returns h.
func (h *Handle[T]) Retain() *Handle[T] {
	h.refs.Add(1)
	return h
}

// Release drops an owner.
func (h *Handle[T]) Release() {
	if h.refs.Add(-1) < 0 {
		panic("cow: handle released more times than retained")
	}
}

// Refs returns the current owner count.
func (h *Handle[T]) Refs() int {
	return int(h.refs.Load())
}

// Unique reports whether exactly one owner holds h.
func (h *Handle[T]) Unique() bool {
	return h.refs.Load() == 1
}
