// Package graph implements the multi-context versioned scene graph.
//
// A System owns a slot allocator and the permanent main context (slot 0).
// Every Node and Attribute keeps one copy-on-write version of its state per
// context slot, so each context behaves like a private snapshot:
//
//	sys := graph.NewSystem()
//	main := sys.Main()
//	render := sys.NewContext()
//
//	root := graph.NewNode(main, "root")
//	_ = main.Map(root, render)     // render now shares root's state
//
//	root.Insert(main, graph.NewNode(main, "mesh"))
//	c := main.Commit()             // NODE_INSERT, invisible to render so far
//	render.Apply(c)                // render now sees the new child
//
// # Recording
//
// Mutations are recorded as Change values in the acting context's pending
// Commit, but only while more than one slot is allocated system-wide. With a
// single context nothing is recorded.
//
// Insert changes carry an ephemeral snapshot context holding the inserted
// entity's state at insertion time. The snapshot is released when the change
// is applied or discarded.
//
// # Replay
//
// Context.Apply replays a Commit in order. Inserts and erases whose parent
// node is not mapped in the target are skipped and logged; attribute value
// changes always apply. Changes replayed into a context are themselves
// recorded there, so a consumer can relay them onward with its own Commit.
//
// # Threading
//
// A Context is meant to be driven by one goroutine at a time. The only state
// shared between contexts is the slot allocator and the context registry,
// both guarded internally. Commit()+Apply() is the only synchronisation
// boundary between contexts.
//
// # Errors
//
// Map with pending changes returns a *ContextError. Every other violated
// precondition (unmapped access, closing a context with pending changes,
// replaying a commit twice) panics with an *InvariantError.
package graph
