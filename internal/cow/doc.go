// Package cow provides the multi-slot copy-on-write container that backs
// every node and attribute of the versioned graph.
//
// A Slots[T] holds one shared Handle[T] per context slot. Mapping a slot
// into another shares the handle; the first write through Mut after that
// clones the value so each slot ends up exclusively owning its copy.
//
//	s := cow.New(clone, nil)
//	s.Setup(0, v)
//	s.Map(0, 1)  // slot 1 now shares slot 0's handle
//	*s.Mut(0) = w // slot 0 clones; slot 1 still observes v
//
// The optional on-copy callback fires synchronously, once per actual copy,
// and never for a no-op Apply.
package cow
