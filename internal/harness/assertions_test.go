package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attributeScenario attaches attr=value to n and shares it with worker.
func attributeScenario(assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:        "attrs",
		Description: "attribute assertions",
		Steps: []Step{
			{Op: OpNode, Name: "n"},
			{Op: OpAttribute, Name: "attr", Value: map[string]any{"k": []any{1, "two"}}},
			{Op: OpInsert, Node: "n", Attribute: "attr"},
			{Op: OpNode, Name: "loose"},
			{Op: OpContext, Name: "worker"},
			{Op: OpMap, Node: "n", Target: "worker"},
		},
		Assertions: assertions,
	}
}

func TestAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"value matches", Assertion{Type: AssertValue, Attribute: "attr", Value: map[string]any{"k": []any{1, "two"}}}, ""},
		{"value in worker", Assertion{Type: AssertValue, Context: "worker", Attribute: "attr", Value: map[string]any{"k": []any{int64(1), "two"}}}, ""},
		{"value differs", Assertion{Type: AssertValue, Attribute: "attr", Value: "nope"}, `value of "attr" = {"k":[1,"two"]}, expected "nope"`},
		{"float rejected", Assertion{Type: AssertValue, Attribute: "attr", Value: 1.5}, "floats are not supported"},
		{"children empty", Assertion{Type: AssertChildren, Node: "n"}, ""},
		{"parents empty", Assertion{Type: AssertParents, Context: "worker", Node: "n", Nodes: []string{}}, ""},
		{"children of unmapped", Assertion{Type: AssertChildren, Context: "worker", Node: "loose"}, `node "loose" is not mapped in worker`},
		{"mapped node", Assertion{Type: AssertMapped, Context: "worker", Node: "n", Mapped: boolp(true)}, ""},
		{"mapped attribute", Assertion{Type: AssertMapped, Context: "worker", Attribute: "attr", Mapped: boolp(true)}, ""},
		{"loose not mapped", Assertion{Type: AssertMapped, Context: "worker", Node: "loose", Mapped: boolp(true)}, `mapped("loose") in worker = false, expected true`},
		{"pending", Assertion{Type: AssertPending, Count: intp(0)}, ""},
		{"slots", Assertion{Type: AssertSlots, Count: intp(2)}, ""},
		{"unknown context", Assertion{Type: AssertPending, Context: "nowhere", Count: intp(0)}, `unknown context "nowhere"`},
		{"unknown attribute", Assertion{Type: AssertValue, Attribute: "ghost"}, `unknown attribute "ghost"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(attributeScenario(tt.assertion))
			require.NoError(t, err)

			if tt.wantErr == "" {
				assert.True(t, result.Pass, result.Errors)
				return
			}
			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.wantErr)
		})
	}
}
