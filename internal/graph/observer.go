package graph

// Observer receives notifications about context lifecycle and change flow.
// Callbacks run synchronously on the goroutine driving the context and must
// not call back into the graph.
//
// Ephemeral snapshot contexts are not reported.
type Observer interface {
	ContextOpened(slot int)
	ContextClosed(slot int)
	ChangeRecorded(slot int, t ChangeType)
	CommitExported(slot int, changes int)
	ChangeApplied(slot int, t ChangeType)
	ChangeSkipped(slot int, t ChangeType)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) ContextOpened(int)              {}
func (NopObserver) ContextClosed(int)              {}
func (NopObserver) ChangeRecorded(int, ChangeType) {}
func (NopObserver) CommitExported(int, int)        {}
func (NopObserver) ChangeApplied(int, ChangeType)  {}
func (NopObserver) ChangeSkipped(int, ChangeType)  {}
