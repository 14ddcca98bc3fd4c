package graph

import (
	"sync/atomic"

	"github.com/roach88/slotgraph/internal/cow"
	"github.com/roach88/slotgraph/internal/value"
)

// Attribute is a named value cell with one version per context.
//
// A write that has to copy a shared version records an ATTRIBUTE_CHANGED in
// the writing context, so ordinary Set calls flow into the commit pipeline.
type Attribute struct {
	name     string
	sys      *System
	cells    *cow.Slots[value.Value]
	released atomic.Bool
}

// NewAttribute creates an attribute mapped in ctx holding v.
func NewAttribute(ctx *Context, name string, v value.Value) *Attribute {
	ctx.mustBeOpen()
	if v == nil {
		v = value.Null{}
	}
	a := &Attribute{name: name, sys: ctx.sys}
	a.cells = cow.New(value.Clone, a.copied)
	a.cells.Setup(ctx.slot, v)
	ctx.track(a)
	return a
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.name
}

// String implements fmt.Stringer.
func (a *Attribute) String() string {
	return a.name
}

// IsMapped reports whether a holds a version in ctx.
func (a *Attribute) IsMapped(ctx *Context) bool {
	return a.cells.IsMapped(ctx.slot)
}

// Get returns the value visible from ctx. Panics if a is unmapped there.
func (a *Attribute) Get(ctx *Context) value.Value {
	if !a.cells.IsMapped(ctx.slot) {
		invariantf("attribute %q not mapped in slot %d", a.name, ctx.slot)
	}
	return a.cells.Get(ctx.slot)
}

// Set replaces the value visible from ctx.
func (a *Attribute) Set(ctx *Context, v value.Value) {
	a.mustBeLive()
	if !a.cells.IsMapped(ctx.slot) {
		invariantf("attribute %q not mapped in slot %d", a.name, ctx.slot)
	}
	if v == nil {
		v = value.Null{}
	}
	*a.cells.Mut(ctx.slot) = v
}

// Apply installs the value carried by an ATTRIBUTE_CHANGED change into ctx.
// Reinstalling the version ctx already holds is a no-op.
func (a *Attribute) Apply(ctx *Context, ch *Change) bool {
	if ch.typ != AttributeChanged || ch.value == nil {
		invariantf("attribute %q applied from %s change", a.name, ch.typ)
	}
	a.mustBeLive()
	ctx.track(a)
	return a.cells.Apply(ctx.slot, ch.value)
}

// Release unmaps a from every slot without recording changes. Nodes must
// have erased it first.
func (a *Attribute) Release() {
	if !a.released.CompareAndSwap(false, true) {
		invariantf("attribute %q released twice", a.name)
	}
	for _, s := range a.cells.Mapped() {
		a.cells.Unmap(s)
		if ctx := a.sys.Context(s); ctx != nil {
			ctx.untrack(a)
		}
	}
}

func (a *Attribute) mustBeLive() {
	if a.released.Load() {
		invariantf("use of released attribute %q", a.name)
	}
}

// copied is the container's on-copy callback.
func (a *Attribute) copied(slot int, h *cow.Handle[value.Value]) {
	ctx := a.sys.Context(slot)
	if ctx == nil || !ctx.recording() {
		return
	}
	ctx.AddChange(&Change{typ: AttributeChanged, attribute: a, value: h.Retain()})
}

func (a *Attribute) unmapSlot(s int) {
	a.cells.Unmap(s)
}

func (a *Attribute) mapSlot(from int, to *Context) {
	if !a.cells.IsMapped(from) {
		invariantf("attribute %q not mapped in slot %d", a.name, from)
	}
	a.cells.Map(from, to.slot)
	to.track(a)
}
