package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/slotgraph/internal/value"
)

type traceVisitor struct {
	events []string
	prune  *Node
}

func (v *traceVisitor) VisitDown(n *Node) bool {
	v.events = append(v.events, "down:"+n.Key())
	return n != v.prune
}

func (v *traceVisitor) VisitUpAttribute(a *Attribute) {
	v.events = append(v.events, "attr:"+a.Name())
}

func (v *traceVisitor) VisitUpNode(n *Node) {
	v.events = append(v.events, "up:"+n.Key())
}

func TestWalk_Order(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	a := NewNode(main, "A")
	b := NewNode(main, "B")
	c := NewNode(main, "C")
	x := NewAttribute(main, "x", value.Null{})
	a.Insert(main, b)
	a.Insert(main, c)
	b.InsertAttribute(main, x)
	// Diamond and back edge: each node is still visited once.
	b.Insert(main, c)
	c.Insert(main, a)

	v := &traceVisitor{}
	Walk(main, a, v)
	assert.Equal(t, []string{
		"down:A#1",
		"down:B#2",
		"down:C#3",
		"up:C#3",
		"attr:x",
		"up:B#2",
		"up:A#1",
	}, v.events)

	closeAll(t, sys)
}

func TestWalk_PruneSkipsSubtree(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	a := NewNode(main, "A")
	b := NewNode(main, "B")
	c := NewNode(main, "C")
	a.Insert(main, b)
	b.Insert(main, c)

	v := &traceVisitor{prune: b}
	Walk(main, a, v)
	assert.Equal(t, []string{"down:A#1", "down:B#2", "up:A#1"}, v.events)

	closeAll(t, sys)
}

func TestWalk_SkipsUnmapped(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	a := NewNode(main, "A")
	c1 := sys.NewContext()

	v := &traceVisitor{}
	Walk(c1, a, v)
	assert.Empty(t, v.events)

	closeAll(t, sys, c1)
}
