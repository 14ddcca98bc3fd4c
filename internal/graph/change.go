package graph

import (
	"fmt"

	"github.com/roach88/slotgraph/internal/cow"
	"github.com/roach88/slotgraph/internal/value"
)

// ChangeType enumerates recorded mutations.
type ChangeType int

const (
	// ChangeNone is the zero sentinel; applying it is a programming error.
	ChangeNone ChangeType = iota
	NodeInsert
	NodeErase
	AttributeInsert
	AttributeErase
	AttributeChanged
)

var changeTypeNames = map[ChangeType]string{
	ChangeNone:       "NONE",
	NodeInsert:       "NODE_INSERT",
	NodeErase:        "NODE_ERASE",
	AttributeInsert:  "ATTRIBUTE_INSERT",
	AttributeErase:   "ATTRIBUTE_ERASE",
	AttributeChanged: "ATTRIBUTE_CHANGED",
}

// String returns the wire-style name, e.g. "NODE_INSERT".
func (t ChangeType) String() string {
	if name, ok := changeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("CHANGE(%d)", int(t))
}

// ParseChangeType is the inverse of ChangeType.String.
func ParseChangeType(s string) (ChangeType, error) {
	for t, name := range changeTypeNames {
		if name == s {
			return t, nil
		}
	}
	return ChangeNone, fmt.Errorf("unknown change type %q", s)
}

// Change is one recorded mutation. Changes are immutable once recorded.
type Change struct {
	typ       ChangeType
	seq       int64
	node      *Node
	child     *Node
	attribute *Attribute
	value     *cow.Handle[value.Value]

	// snapshot holds the inserted entity's state at insertion time.
	snapshot *Context
}

// newInsertChange builds a NODE_INSERT or ATTRIBUTE_INSERT, capturing the
// inserted entity from ctx into a fresh snapshot context.
func newInsertChange(ctx *Context, t ChangeType, n, child *Node, a *Attribute) *Change {
	ch := &Change{typ: t, node: n, child: child, attribute: a}
	ch.snapshot = ctx.sys.open(true)
	switch t {
	case NodeInsert:
		walk(ctx.slot, child, &mapper{from: ctx.slot, to: ch.snapshot})
	case AttributeInsert:
		a.mapSlot(ctx.slot, ch.snapshot)
	}
	return ch
}

// Type returns the change type.
func (ch *Change) Type() ChangeType { return ch.typ }

// Seq returns the logical sequence number assigned by the recording context.
func (ch *Change) Seq() int64 { return ch.seq }

// Node returns the parent node of an insert or erase, nil otherwise.
func (ch *Change) Node() *Node { return ch.node }

// Child returns the child of a NODE_INSERT or NODE_ERASE.
func (ch *Change) Child() *Node { return ch.child }

// Attribute returns the attribute of an attribute change.
func (ch *Change) Attribute() *Attribute { return ch.attribute }

// Value returns the value carried by an ATTRIBUTE_CHANGED, or nil.
func (ch *Change) Value() value.Value {
	if ch.value == nil {
		return nil
	}
	return ch.value.Value()
}

// HasSnapshot reports whether the change owns a snapshot context.
func (ch *Change) HasSnapshot() bool {
	return ch.snapshot != nil
}

// release drops the value handle and closes the snapshot context.
func (ch *Change) release() {
	if ch.value != nil {
		ch.value.Release()
		ch.value = nil
	}
	if ch.snapshot != nil {
		ch.snapshot.Close()
		ch.snapshot = nil
	}
}

// Record is a plain description of a change for journals and traces.
type Record struct {
	Seq       int64
	Type      ChangeType
	Node      string
	Child     string
	Attribute string
	Value     value.Value
}

// Record describes ch.
func (ch *Change) Record() Record {
	r := Record{Seq: ch.seq, Type: ch.typ, Value: ch.Value()}
	if ch.node != nil {
		r.Node = ch.node.Key()
	}
	if ch.child != nil {
		r.Child = ch.child.Key()
	}
	if ch.attribute != nil {
		r.Attribute = ch.attribute.name
	}
	return r
}

// Object returns the record as a value.Object with only set fields present.
func (r Record) Object() value.Object {
	obj := value.Object{
		"seq":  value.Int(r.Seq),
		"type": value.String(r.Type.String()),
	}
	if r.Node != "" {
		obj["node"] = value.String(r.Node)
	}
	if r.Child != "" {
		obj["child"] = value.String(r.Child)
	}
	if r.Attribute != "" {
		obj["attribute"] = value.String(r.Attribute)
	}
	if r.Value != nil {
		obj["value"] = r.Value
	}
	return obj
}
