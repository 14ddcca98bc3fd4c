package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotgraph/internal/value"
)

func TestScenarioA_SingleContextRecordsNothing(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()

	a := NewNode(main, "A")
	b := NewNode(main, "B")
	require.True(t, a.Insert(main, b))

	assert.Equal(t, 1, a.ChildCount(main))
	assert.Equal(t, 1, b.ParentCount(main))
	assert.Equal(t, 0, main.Pending())
	assert.True(t, main.Commit().Empty())

	closeAll(t, sys)
}

func TestScenarioB_InsertReplaysIntoSecondContext(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	a := NewNode(main, "A")
	b := NewNode(main, "B")

	c1 := sys.NewContext()
	require.Equal(t, 1, c1.Slot())
	require.NoError(t, main.Map(a, c1))
	require.True(t, a.IsMapped(c1))
	require.False(t, b.IsMapped(c1))

	require.True(t, a.Insert(main, b))
	require.Equal(t, 1, main.Pending())

	cm := main.Commit()
	assert.Equal(t, 0, main.Pending())
	require.Equal(t, 1, cm.Len())
	assert.Equal(t, NodeInsert, cm.Changes()[0].Type())
	assert.Equal(t, "commit-001", cm.ID())
	assert.Equal(t, 0, cm.Source())

	assert.Equal(t, 0, a.ChildCount(c1), "slot 1 must not see the insert before apply")

	res := c1.Apply(cm)
	assert.Equal(t, ApplyResult{Applied: 1}, res)
	assert.True(t, a.HasChild(c1, b))
	assert.Equal(t, []*Node{a}, b.Parents(c1))

	// Replayed edits are recorded again in the consumer.
	assert.Equal(t, 1, c1.Pending())

	closeAll(t, sys, c1)
}

func TestScenarioC_AttributeCopyOnWrite(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	attr := NewAttribute(main, "x", value.Int(0))

	c1 := sys.NewContext()
	require.NoError(t, main.MapAttribute(attr, c1))
	assert.Equal(t, value.Int(0), attr.Get(c1))

	attr.Set(main, value.Int(5))
	require.Equal(t, 1, main.Pending())
	assert.Equal(t, value.Int(5), attr.Get(main))
	assert.Equal(t, value.Int(0), attr.Get(c1))

	cm := main.Commit()
	require.Equal(t, 1, cm.Len())
	ch := cm.Changes()[0]
	assert.Equal(t, AttributeChanged, ch.Type())
	assert.Equal(t, value.Int(5), ch.Value())

	assert.Equal(t, value.Int(0), attr.Get(c1))
	res := c1.Apply(cm)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, value.Int(5), attr.Get(c1))

	closeAll(t, sys, c1)
}

func TestScenarioD_EraseOfAbsentChild(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	a := NewNode(main, "A")
	b := NewNode(main, "B")
	c1 := sys.NewContext()

	before := main.Pending()
	assert.False(t, a.Erase(main, b))
	assert.Equal(t, before, main.Pending())

	closeAll(t, sys, c1)
}

func TestContext_MapWithPendingChanges(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	a := NewNode(main, "A")
	b := NewNode(main, "B")
	c1 := sys.NewContext()

	a.Insert(main, b)
	err := main.Map(a, c1)
	require.Error(t, err)
	assert.True(t, IsPendingChanges(err))
	assert.True(t, IsPendingChanges(fmt.Errorf("wrapped: %w", err)))

	var ce *ContextError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrCodePendingChanges, ce.Code)
	assert.Equal(t, 0, ce.Slot)
	assert.False(t, a.IsMapped(c1))

	main.Commit().Discard()
	require.NoError(t, main.Map(a, c1))
	assert.True(t, a.IsMapped(c1))
	assert.True(t, b.IsMapped(c1))

	closeAll(t, sys, c1)
}

func TestContext_MapRejectsSelfAndClosedTarget(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	a := NewNode(main, "A")

	var ce *ContextError
	err := main.Map(a, main)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrCodeSameContext, ce.Code)

	c1 := sys.NewContext()
	c1.Close()
	err = main.Map(a, c1)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrCodeContextClosed, ce.Code)
	assert.False(t, IsPendingChanges(err))

	closeAll(t, sys)
}

func TestContext_MapSharesReachableGraph(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	a := NewNode(main, "A")
	b := NewNode(main, "B")
	c := NewNode(main, "C")
	x := NewAttribute(main, "x", value.String("hi"))
	a.Insert(main, b)
	b.Insert(main, c)
	b.InsertAttribute(main, x)

	c1 := sys.NewContext()
	require.NoError(t, main.Map(a, c1))

	for _, n := range []*Node{a, b, c} {
		assert.True(t, n.IsMapped(c1), "%s", n)
	}
	assert.True(t, x.IsMapped(c1))
	assert.Equal(t, value.String("hi"), x.Get(c1))
	assert.Equal(t, []*Node{b}, c.Parents(c1))
	requireSymmetric(t, c1, []*Node{a, b, c})

	closeAll(t, sys, c1)
}

func TestContext_UnmapReleasesSubtree(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	a := NewNode(main, "A")
	b := NewNode(main, "B")
	x := NewAttribute(main, "x", value.Int(1))
	a.Insert(main, b)
	b.InsertAttribute(main, x)

	c1 := sys.NewContext()
	require.NoError(t, main.Map(a, c1))
	c1.Unmap(a)

	assert.False(t, a.IsMapped(c1))
	assert.False(t, b.IsMapped(c1))
	assert.False(t, x.IsMapped(c1))
	assert.True(t, a.IsMapped(main))
	assert.Equal(t, 1, a.ChildCount(main))

	closeAll(t, sys, c1)
}

func TestContext_ClosePanics(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	c1 := sys.NewContext()

	a := NewNode(c1, "A")
	b := NewNode(c1, "B")
	a.Insert(c1, b)
	require.Equal(t, 1, c1.Pending())

	assert.Panics(t, func() { c1.Close() }, "close with pending changes")
	assert.False(t, c1.Closed())

	assert.Panics(t, func() { sys.Close() }, "main closed while slot 1 is allocated")
	assert.False(t, main.Closed())

	c1.Commit().Discard()
	c1.Close()
	assert.True(t, c1.Closed())
	assert.Panics(t, func() { c1.Close() }, "double close")

	closeAll(t, sys)
}

func TestContext_SlotReuseStartsEmpty(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	a := NewNode(main, "A")

	c1 := sys.NewContext()
	c2 := sys.NewContext()
	c3 := sys.NewContext()
	assert.Equal(t, []int{1, 2, 3}, []int{c1.Slot(), c2.Slot(), c3.Slot()})
	assert.Equal(t, 4, sys.Slots())

	require.NoError(t, main.Map(a, c2))
	c2.Close()
	assert.Nil(t, sys.Context(2))

	c4 := sys.NewContext()
	assert.Equal(t, 2, c4.Slot())
	assert.False(t, a.IsMapped(c4), "recycled slot must not inherit mappings")
	assert.Same(t, c4, sys.Context(2))

	closeAll(t, sys, c1, c3, c4)
}

func TestContext_CommitSeqIsMonotonic(t *testing.T) {
	sys := newTestSystem(t)
	main := sys.Main()
	c1 := sys.NewContext()
	a := NewNode(main, "A")
	b := NewNode(main, "B")
	c := NewNode(main, "C")

	a.Insert(main, b)
	a.Insert(main, c)
	first := main.Commit()
	a.Erase(main, b)
	second := main.Commit()

	assert.Equal(t, []int64{1, 2}, []int64{first.Changes()[0].Seq(), first.Changes()[1].Seq()})
	assert.Equal(t, int64(3), second.Changes()[0].Seq())
	assert.Equal(t, "commit-001", first.ID())
	assert.Equal(t, "commit-002", second.ID())

	first.Discard()
	second.Discard()
	closeAll(t, sys, c1)
}
