package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/slotgraph/internal/value"
)

// evaluate checks one assertion against the harness's final state.
// A graph invariant panic raised while reading state is reported as an error.
func (h *Harness) evaluate(a Assertion) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()

	c, err := h.context(a.Context)
	if err != nil {
		return err
	}

	switch a.Type {
	case AssertChildren, AssertParents:
		n, err := h.node(a.Node)
		if err != nil {
			return err
		}
		if !n.IsMapped(c) {
			return fmt.Errorf("node %q is not mapped in %s", a.Node, contextName(a.Context))
		}
		got := n.Children(c)
		if a.Type == AssertParents {
			got = n.Parents(c)
		}
		names := h.nodeNames(got)
		want := a.Nodes
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(names, want) {
			return fmt.Errorf("%s of %q = %v, expected %v", a.Type, a.Node, names, want)
		}

	case AssertValue:
		attr, err := h.attribute(a.Attribute)
		if err != nil {
			return err
		}
		if !attr.IsMapped(c) {
			return fmt.Errorf("attribute %q is not mapped in %s", a.Attribute, contextName(a.Context))
		}
		want, err := value.From(a.Value)
		if err != nil {
			return fmt.Errorf("expected value: %w", err)
		}
		got := attr.Get(c)
		if !value.Equal(got, want) {
			return fmt.Errorf("value of %q = %s, expected %s", a.Attribute, render(got), render(want))
		}

	case AssertPending:
		if got := c.Pending(); got != *a.Count {
			return fmt.Errorf("pending in %s = %d, expected %d", contextName(a.Context), got, *a.Count)
		}

	case AssertMapped:
		var got bool
		name := a.Node
		if a.Node != "" {
			n, err := h.node(a.Node)
			if err != nil {
				return err
			}
			got = n.IsMapped(c)
		} else {
			attr, err := h.attribute(a.Attribute)
			if err != nil {
				return err
			}
			got = attr.IsMapped(c)
			name = a.Attribute
		}
		if got != *a.Mapped {
			return fmt.Errorf("mapped(%q) in %s = %t, expected %t", name, contextName(a.Context), got, *a.Mapped)
		}

	case AssertSlots:
		if got := h.sys.Slots(); got != *a.Count {
			return fmt.Errorf("slots = %d, expected %d", got, *a.Count)
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func render(v value.Value) string {
	b, err := value.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
