// Package harness runs scripted graph scenarios and checks their outcome.
//
// A scenario drives a fresh graph.System through a list of steps, then
// evaluates assertions against the final state of its contexts. Every
// commit taken and every apply performed is recorded in a trace, which can
// be compared against a golden file.
//
// # Scenario Format
//
// Scenarios are YAML (.yaml, .yml) or CUE (.cue) files:
//
//	name: replay_insert
//	description: "An insert in main replays into a second context"
//	steps:
//	  - op: node
//	    name: a
//	  - op: node
//	    name: b
//	  - op: context
//	    name: worker
//	  - op: map
//	    node: a
//	    target: worker
//	  - op: insert
//	    node: a
//	    child: b
//	  - op: commit
//	    name: c1
//	    expect: { changes: 1 }
//	  - op: apply
//	    commit: c1
//	    context: worker
//	    expect: { applied: 1, skipped: 0 }
//	assertions:
//	  - type: children
//	    context: worker
//	    node: a
//	    nodes: [b]
//
// Steps act in the context named by "context", or "main" when omitted.
//
// # Step Operations
//
//   - context: open a context called name
//   - node, attribute: create an entity called name (attribute takes value)
//   - insert, erase: link or unlink child (or attribute) under node
//   - set: write value to attribute
//   - map: share node (or attribute) with target; expect.error names a
//     context error code the map must fail with
//   - unmap: release node's subtree from the context
//   - commit: take the context's pending changes as commit name
//   - apply: replay commit into the context
//   - discard: drop commit, or the context's pending changes
//   - close: close the context
//   - release: tear down node or attribute
//
// # Assertion Types
//
//   - children, parents: node's adjacency by name, in order
//   - value: attribute's value
//   - pending: the context's pending change count
//   - mapped: whether node or attribute is mapped in the context
//   - slots: the system's allocated slot count
//
// # Golden Files
//
// RunWithGolden stores traces under testdata/golden/<name>.golden.
// Regenerate them with:
//
//	go test ./internal/harness -update
package harness
