package graph

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/roach88/slotgraph/internal/cow"
)

// links is one slot's view of a node's adjacency.
// Children and attributes are owned; parents are back-references.
type links struct {
	parents    []*Node
	children   []*Node
	attributes []*Attribute
}

func cloneLinks(l links) links {
	return links{
		parents:    slices.Clone(l.parents),
		children:   slices.Clone(l.children),
		attributes: slices.Clone(l.attributes),
	}
}

// Node is a graph vertex with per-context adjacency.
//
// For every slot, child ∈ parent.Children ⇔ parent ∈ child.Parents.
type Node struct {
	id       uint64
	label    string
	sys      *System
	cells    *cow.Slots[links]
	released atomic.Bool
}

// NewNode creates a node mapped in ctx with no links.
func NewNode(ctx *Context, label string) *Node {
	ctx.mustBeOpen()
	n := &Node{
		id:    ctx.sys.nodeSeq.Add(1),
		label: label,
		sys:   ctx.sys,
		cells: cow.New(cloneLinks, nil),
	}
	n.cells.Setup(ctx.slot, links{})
	ctx.track(n)
	return n
}

// ID returns the node's system-unique identifier.
func (n *Node) ID() uint64 {
	return n.id
}

// Label returns the node's label.
func (n *Node) Label() string {
	return n.label
}

// Key returns a stable diagnostic name, "label#id".
func (n *Node) Key() string {
	label := n.label
	if label == "" {
		label = "node"
	}
	return fmt.Sprintf("%s#%d", label, n.id)
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return n.Key()
}

// IsMapped reports whether n holds a version in ctx.
func (n *Node) IsMapped(ctx *Context) bool {
	return n.cells.IsMapped(ctx.slot)
}

// Children returns a copy of n's children in ctx.
func (n *Node) Children(ctx *Context) []*Node {
	return slices.Clone(n.view(ctx.slot).children)
}

// Parents returns a copy of n's parents in ctx.
func (n *Node) Parents(ctx *Context) []*Node {
	return slices.Clone(n.view(ctx.slot).parents)
}

// Attributes returns a copy of n's attributes in ctx.
func (n *Node) Attributes(ctx *Context) []*Attribute {
	return slices.Clone(n.view(ctx.slot).attributes)
}

// ChildCount returns the number of children in ctx.
func (n *Node) ChildCount(ctx *Context) int {
	return len(n.view(ctx.slot).children)
}

// ParentCount returns the number of parents in ctx.
func (n *Node) ParentCount(ctx *Context) int {
	return len(n.view(ctx.slot).parents)
}

// AttributeCount returns the number of attributes in ctx.
func (n *Node) AttributeCount(ctx *Context) int {
	return len(n.view(ctx.slot).attributes)
}

// HasChild reports whether child is linked under n in ctx.
func (n *Node) HasChild(ctx *Context, child *Node) bool {
	return slices.Contains(n.view(ctx.slot).children, child)
}

// Attribute returns the first attribute named name in ctx, or nil.
func (n *Node) Attribute(ctx *Context, name string) *Attribute {
	for _, a := range n.view(ctx.slot).attributes {
		if a.name == name {
			return a
		}
	}
	return nil
}

// Insert links child under n in ctx and records a NODE_INSERT.
// Returns false, recording nothing, if the link already exists.
func (n *Node) Insert(ctx *Context, child *Node) bool {
	if child == nil {
		invariantf("insert of nil child into %s", n.Key())
	}
	s := ctx.slot
	n.mustBeLive()
	child.mustBeLive()
	hasChild := slices.Contains(n.view(s).children, child)
	hasParent := slices.Contains(child.view(s).parents, n)
	if hasChild && hasParent {
		return false
	}

	if ctx.recording() {
		ctx.AddChange(newInsertChange(ctx, NodeInsert, n, child, nil))
	}
	if !hasChild {
		n.linkChild(s, child)
	}
	if !hasParent {
		child.linkParent(s, n)
	}
	return true
}

// Erase unlinks child from n in ctx and records a NODE_ERASE.
// Returns false, recording nothing, if child is not linked under n.
func (n *Node) Erase(ctx *Context, child *Node) bool {
	s := ctx.slot
	n.mustBeLive()
	hasChild := slices.Contains(n.view(s).children, child)
	hasParent := child.cells.IsMapped(s) && slices.Contains(child.cells.Get(s).parents, n)
	if !hasChild && !hasParent {
		return false
	}

	if ctx.recording() {
		ctx.AddChange(&Change{typ: NodeErase, node: n, child: child})
	}
	if hasChild {
		n.unlinkChild(s, child)
	}
	if hasParent {
		child.unlinkParent(s, n)
	}
	return true
}

// InsertAttribute attaches a to n in ctx and records an ATTRIBUTE_INSERT.
// Returns false if a is already attached.
func (n *Node) InsertAttribute(ctx *Context, a *Attribute) bool {
	if a == nil {
		invariantf("insert of nil attribute into %s", n.Key())
	}
	s := ctx.slot
	n.mustBeLive()
	if !a.cells.IsMapped(s) {
		invariantf("attribute %q not mapped in slot %d", a.name, s)
	}
	if slices.Contains(n.view(s).attributes, a) {
		return false
	}

	if ctx.recording() {
		ctx.AddChange(newInsertChange(ctx, AttributeInsert, n, nil, a))
	}
	l := n.cells.Mut(s)
	l.attributes = append(l.attributes, a)
	return true
}

// EraseAttribute detaches a from n in ctx and records an ATTRIBUTE_ERASE.
// Returns false if a is not attached.
func (n *Node) EraseAttribute(ctx *Context, a *Attribute) bool {
	s := ctx.slot
	n.mustBeLive()
	i := slices.Index(n.view(s).attributes, a)
	if i < 0 {
		return false
	}

	if ctx.recording() {
		ctx.AddChange(&Change{typ: AttributeErase, node: n, attribute: a})
	}
	l := n.cells.Mut(s)
	l.attributes = slices.Delete(l.attributes, i, i+1)
	return true
}

// Release tears n down: it is unlinked from parents and children in every
// slot and unmapped everywhere, without recording changes. The node must
// not be referenced by a commit that has yet to be applied.
func (n *Node) Release() {
	if !n.released.CompareAndSwap(false, true) {
		invariantf("node %s released twice", n.Key())
	}
	for _, s := range n.cells.Mapped() {
		l := n.cells.Get(s)
		for _, p := range l.parents {
			if p.cells.IsMapped(s) {
				p.unlinkChild(s, n)
			}
		}
		for _, c := range l.children {
			if c.cells.IsMapped(s) {
				c.unlinkParent(s, n)
			}
		}
		n.cells.Unmap(s)
		if ctx := n.sys.Context(s); ctx != nil {
			ctx.untrack(n)
		}
	}
}

func (n *Node) view(s int) links {
	if !n.cells.IsMapped(s) {
		invariantf("node %s not mapped in slot %d", n.Key(), s)
	}
	return n.cells.Get(s)
}

func (n *Node) mustBeLive() {
	if n.released.Load() {
		invariantf("use of released node %s", n.Key())
	}
}

func (n *Node) linkChild(s int, child *Node) {
	l := n.cells.Mut(s)
	l.children = append(l.children, child)
}

func (n *Node) linkParent(s int, parent *Node) {
	l := n.cells.Mut(s)
	l.parents = append(l.parents, parent)
}

func (n *Node) unlinkChild(s int, child *Node) {
	l := n.cells.Mut(s)
	l.children = slices.DeleteFunc(l.children, func(c *Node) bool { return c == child })
}

func (n *Node) unlinkParent(s int, parent *Node) {
	l := n.cells.Mut(s)
	l.parents = slices.DeleteFunc(l.parents, func(p *Node) bool { return p == parent })
}

func (n *Node) unmapSlot(s int) {
	n.cells.Unmap(s)
}

// mapSlot shares from's version with to as-is.
func (n *Node) mapSlot(from int, to *Context) {
	n.cells.Map(from, to.slot)
	to.track(n)
}

// adopt shares from's version with to and then repairs adjacency in to so
// that parent and child lists stay symmetric there: children n no longer
// owns drop n as a parent, children n now owns gain it, and n keeps only
// parents that list it as a child in to.
func (n *Node) adopt(from int, to *Context) {
	t := to.slot
	var prev links
	if n.cells.IsMapped(t) {
		prev = n.cells.Get(t)
	}
	n.mapSlot(from, to)
	cur := n.cells.Get(t)

	for _, oc := range prev.children {
		if !slices.Contains(cur.children, oc) && oc.cells.IsMapped(t) {
			oc.unlinkParent(t, n)
		}
	}
	for _, c := range cur.children {
		if c.cells.IsMapped(t) && !slices.Contains(c.cells.Get(t).parents, n) {
			c.linkParent(t, n)
		}
	}

	want := make([]*Node, 0, len(cur.parents))
	for _, p := range slices.Concat(cur.parents, prev.parents) {
		if slices.Contains(want, p) {
			continue
		}
		if p.cells.IsMapped(t) && slices.Contains(p.cells.Get(t).children, n) {
			want = append(want, p)
		}
	}
	if !slices.Equal(want, cur.parents) {
		n.cells.Mut(t).parents = want
	}
}
