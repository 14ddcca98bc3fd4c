package graph

// Visitor receives a depth-first walk over nodes and their attributes.
//
// VisitDown runs pre-order; returning false skips the node's subtree and its
// up-visits. VisitUpAttribute runs for each attribute of a node after its
// children, and VisitUpNode runs last.
type Visitor interface {
	VisitDown(n *Node) bool
	VisitUpAttribute(a *Attribute)
	VisitUpNode(n *Node)
}

// Walk visits root and everything reachable from it as seen from ctx.
// Nodes reachable along several paths are visited once; nodes and
// attributes not mapped in ctx are not visited.
func Walk(ctx *Context, root *Node, v Visitor) {
	ctx.mustBeOpen()
	walk(ctx.slot, root, v)
}

func walk(s int, root *Node, v Visitor) {
	w := walker{slot: s, v: v, nodes: make(map[*Node]bool), attrs: make(map[*Attribute]bool)}
	w.visit(root)
}

type walker struct {
	slot  int
	v     Visitor
	nodes map[*Node]bool
	attrs map[*Attribute]bool
}

func (w *walker) visit(n *Node) {
	if n == nil || w.nodes[n] || !n.cells.IsMapped(w.slot) {
		return
	}
	w.nodes[n] = true
	l := n.cells.Get(w.slot)
	if !w.v.VisitDown(n) {
		return
	}
	for _, c := range l.children {
		w.visit(c)
	}
	for _, a := range l.attributes {
		if w.attrs[a] || !a.cells.IsMapped(w.slot) {
			continue
		}
		w.attrs[a] = true
		w.v.VisitUpAttribute(a)
	}
	w.v.VisitUpNode(n)
}

// mapper shares every visited entity's version in from with to. With adopt
// set, nodes also repair their adjacency in to.
type mapper struct {
	from  int
	to    *Context
	adopt bool
}

func (m *mapper) VisitDown(n *Node) bool {
	if m.adopt {
		n.adopt(m.from, m.to)
	} else {
		n.mapSlot(m.from, m.to)
	}
	return true
}

func (m *mapper) VisitUpAttribute(a *Attribute) {
	a.mapSlot(m.from, m.to)
}

func (m *mapper) VisitUpNode(*Node) {}

// unmapper releases every visited entity from ctx, attributes before the
// node holding them.
type unmapper struct {
	ctx *Context
}

func (u *unmapper) VisitDown(*Node) bool { return true }

func (u *unmapper) VisitUpAttribute(a *Attribute) {
	a.unmapSlot(u.ctx.slot)
	u.ctx.untrack(a)
}

func (u *unmapper) VisitUpNode(n *Node) {
	n.unmapSlot(u.ctx.slot)
	u.ctx.untrack(n)
}
