package harness

import (
	"github.com/roach88/slotgraph/internal/graph"
)

// Trace event types.
const (
	EventCommit = "commit"
	EventApply  = "apply"
)

// TraceEvent records one commit taken or one apply performed.
type TraceEvent struct {
	// Step is the zero-based index of the step that produced the event.
	Step int

	// Type is EventCommit or EventApply.
	Type string

	// Context is the scenario name of the context acted in.
	Context string

	// Commit is the scenario name of the commit.
	Commit string

	// ID is the commit ID (commit events only).
	ID string

	// Changes describes the commit's changes (commit events only).
	Changes []graph.Record

	// Applied and Skipped are the apply result (apply events only).
	Applied int
	Skipped int
}

// Result is the outcome of a scenario run.
type Result struct {
	// Name is the scenario name.
	Name string

	// Pass is true when every step expectation and assertion held.
	Pass bool

	// Trace lists commit and apply events in step order.
	Trace []TraceEvent

	// Errors holds failed expectations and assertions.
	Errors []string
}

// NewResult creates a passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCommitTrace records a commit event.
func (r *Result) AddCommitTrace(step int, context, name string, cm *graph.Commit) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:    step,
		Type:    EventCommit,
		Context: context,
		Commit:  name,
		ID:      cm.ID(),
		Changes: cm.Records(),
	})
}

// AddApplyTrace records an apply event.
func (r *Result) AddApplyTrace(step int, context, name string, res graph.ApplyResult) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:    step,
		Type:    EventApply,
		Context: context,
		Commit:  name,
		Applied: res.Applied,
		Skipped: res.Skipped,
	})
}
